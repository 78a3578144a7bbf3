// Package auth verifies access tokens issued by the external auth service.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type AuthUseCase struct {
	jwtSecret []byte
	issuer    string
}

func NewAuthUseCase(cfg config.JWTConfig) *AuthUseCase {
	return &AuthUseCase{jwtSecret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyToken checks an HS256 access token and returns the identity in its
// subject. The subject must be a UUID.
func (uc *AuthUseCase) VerifyToken(_ context.Context, tokenString string) (domain.Identity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if uc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(uc.issuer))
	}

	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return uc.jwtSecret, nil
	}, opts...)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, domain.ErrUnauthenticated
		}
		return domain.Identity{}, domain.ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return domain.Identity{ID: id, Email: claims.Email}, nil
}
