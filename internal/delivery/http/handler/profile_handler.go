package handler

import (
	"errors"
	"net/http"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/usecase/profile"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileUseCase *profile.ProfileUseCase
}

func NewProfileHandler(profileUseCase *profile.ProfileUseCase) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: profileUseCase,
	}
}

// EnsureProfile handles POST /profile/ensure
// @Summary Ensure profile
// @Description Create the caller's profile on first login, or mark the existing one online
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} profile.Result
// @Failure 401 {object} ErrorResponse
// @Router /profile/ensure [post]
func (h *ProfileHandler) EnsureProfile(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	result, err := h.profileUseCase.Ensure(c.Request.Context(), identity)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMyProfile handles GET /profile/me
// @Summary Get my profile
// @Description Get current user's profile
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.Profile
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profile/me [get]
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	p, err := h.profileUseCase.GetProfile(c.Request.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "profile not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to get profile",
		})
		return
	}

	c.JSON(http.StatusOK, p)
}
