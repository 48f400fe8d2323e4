package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/padma-edu/timetable-api/internal/middleware"
	"github.com/padma-edu/timetable-api/internal/models"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// tenantFromContext extracts the mandatory tenant scope from the verified
// claims. Every operation requires it; requests without one are rejected.
func tenantFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.TenantID == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "missing tenant scope")
	}
	return claims.TenantID, nil
}
