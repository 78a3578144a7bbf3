package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/usecase/auth"
	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the caller's domain.Identity.
const IdentityKey = "identity"

type AuthMiddleware struct {
	authUseCase *auth.AuthUseCase
}

func NewAuthMiddleware(authUseCase *auth.AuthUseCase) *AuthMiddleware {
	return &AuthMiddleware{authUseCase: authUseCase}
}

// RequireAuth accepts a bearer token from the Authorization header, or from
// the access_token query parameter for websocket upgrades that cannot set
// headers.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}

		identity, err := m.authUseCase.VerifyToken(c.Request.Context(), token)
		if err != nil {
			message := "invalid token"
			if errors.Is(err, domain.ErrUnauthenticated) {
				message = "unauthorized"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
