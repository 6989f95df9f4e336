package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-ops-api/internal/middleware"
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// queryDate reads an optional YYYY-MM-DD query parameter. A missing value yields the zero Date.
func queryDate(c *gin.Context, name string) (models.Date, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return models.Date{}, nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" format, expected YYYY-MM-DD")
	}
	return date, nil
}

func withMeta(c *gin.Context, cacheHit, stale bool) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetStale(c, stale)
	return middleware.ExtractMeta(c)
}
