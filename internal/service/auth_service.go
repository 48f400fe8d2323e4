package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/padma-edu/timetable-api/internal/models"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
)

// AuthService validates access tokens issued by the session collaborator.
// Token issuance, login, and user management live outside this service.
type AuthService struct {
	secret []byte
}

// NewAuthService builds the validator with the shared HMAC secret.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// ValidateToken parses and verifies the token and requires a tenant id in
// the claims. A token without a tenant cannot scope any operation and is
// rejected outright.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.TenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is missing tenant scope")
	}

	return claims, nil
}
