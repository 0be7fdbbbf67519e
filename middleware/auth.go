// Package middleware carries the gin middleware for the API: partner key
// authentication, master-key protection for admin routes, per-client rate
// limiting and Prometheus request instrumentation.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"crop-analyze-pipeline/apikeys"
)

const (
	// PartnerContextKey is where the authenticated partner name is stored
	// on the gin context.
	PartnerContextKey = "partner"
)

// extractKey reads the API key from the X-API-Key header or a Bearer token.
func extractKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// APIKeyAuth validates the partner key on every request and records usage.
func APIKeyAuth(manager *apikeys.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractKey(c)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}

		record, err := manager.Validate(c.Request.Context(), key, c.FullPath())
		if err != nil {
			switch {
			case errors.Is(err, apikeys.ErrLimitExceeded):
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "daily request limit exceeded"})
			case errors.Is(err, apikeys.ErrInvalidKey), errors.Is(err, apikeys.ErrKeyInactive):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			default:
				log.WithError(err).Error("api key validation failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
			}
			c.Abort()
			return
		}

		c.Set(PartnerContextKey, record.Partner)
		c.Next()
	}
}

// MasterKeyAuth protects the key-management admin routes.
func MasterKeyAuth(masterKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if masterKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "key management is not configured"})
			c.Abort()
			return
		}
		if extractKey(c) != masterKey {
			log.WithField("ip", c.ClientIP()).Warn("rejected admin request with bad master key")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid master key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Partner returns the authenticated partner for a request, or "anonymous"
// on unauthenticated routes.
func Partner(c *gin.Context) string {
	if v, ok := c.Get(PartnerContextKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "anonymous"
}
