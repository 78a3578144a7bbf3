package handler

import (
	"net/http"

	"github.com/gdugdh24/geopresence/internal/delivery/http/middleware"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func identityFrom(c *gin.Context) (domain.Identity, bool) {
	v, exists := c.Get(middleware.IdentityKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
		return domain.Identity{}, false
	}
	return v.(domain.Identity), true
}
