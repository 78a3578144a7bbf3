package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/usecase/presence"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PresenceHandler struct {
	presenceUseCase *presence.PresenceUseCase
}

func NewPresenceHandler(presenceUseCase *presence.PresenceUseCase) *PresenceHandler {
	return &PresenceHandler{
		presenceUseCase: presenceUseCase,
	}
}

// GoOnline handles POST /presence/online
func (h *PresenceHandler) GoOnline(c *gin.Context) {
	h.setOnline(c, true, h.presenceUseCase.SetOnline)
}

// GoOffline handles POST /presence/offline. Clients call it on logout, so the
// cached position is dropped as well.
func (h *PresenceHandler) GoOffline(c *gin.Context) {
	h.setOnline(c, false, func(ctx context.Context, id uuid.UUID, _ bool) error {
		return h.presenceUseCase.Logout(ctx, id)
	})
}

func (h *PresenceHandler) setOnline(c *gin.Context, online bool, write func(context.Context, uuid.UUID, bool) error) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	if err := write(c.Request.Context(), identity.ID, online); err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "profile not found",
			})
			return
		}
		logger.Error("set presence for %s: %v", identity.ID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to update presence",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_online": online})
}
