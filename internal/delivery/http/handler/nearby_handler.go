package handler

import (
	"net/http"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/usecase/proximity"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/gin-gonic/gin"
)

type NearbyHandler struct {
	proximityUseCase *proximity.ProximityUseCase
}

func NewNearbyHandler(proximityUseCase *proximity.ProximityUseCase) *NearbyHandler {
	return &NearbyHandler{
		proximityUseCase: proximityUseCase,
	}
}

// NearbyRequest is the origin of a one-shot nearby query.
type NearbyRequest struct {
	Lat *float64 `form:"lat" binding:"required,latitude"`
	Lon *float64 `form:"lon" binding:"required,longitude"`
}

// NearbyResponse lists nearby users, nearest first.
type NearbyResponse struct {
	Users []domain.CandidateUser `json:"users"`
}

// GetNearby handles GET /nearby
// @Summary Nearby users
// @Description Online users near the given origin, nearest first
// @Tags nearby
// @Security BearerAuth
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Success 200 {object} NearbyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /nearby [get]
func (h *NearbyHandler) GetNearby(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	var req NearbyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: domain.ErrInvalidCoordinates.Error(),
		})
		return
	}

	origin := domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon}
	users, err := h.proximityUseCase.Refresh(c.Request.Context(), identity.ID, origin)
	if err != nil {
		logger.Error("nearby for %s: %v", identity.ID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to load nearby users",
		})
		return
	}

	c.JSON(http.StatusOK, NearbyResponse{Users: users})
}
