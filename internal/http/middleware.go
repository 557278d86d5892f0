// Package http exposes the routing engine over a thin gin surface: the
// selection API behind API-key auth and the admin API behind JWT auth.
package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/RoutingEngine/internal/security"
	"github.com/router-for-me/RoutingEngine/internal/util"
	log "github.com/sirupsen/logrus"
)

// APIKeyAuth accepts requests bearing an API key matching one of the
// configured bcrypt hashes. The key comes from Authorization: Bearer or the
// X-Api-Key header.
func APIKeyAuth(hashes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearerToken(c)
		if key == "" {
			key = strings.TrimSpace(c.GetHeader("X-Api-Key"))
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}

		for _, hash := range hashes {
			if security.CheckAPIKey(hash, key) {
				c.Next()
				return
			}
		}
		log.Debugf("rejected api key %s", util.HideAPIKey(key))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
	}
}

// AdminJWTAuth accepts requests bearing a valid admin token.
func AdminJWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, errParse := security.ParseAdminToken(secret, token)
		if errParse != nil {
			status := http.StatusUnauthorized
			message := "invalid token"
			if errParse == security.ErrExpiredToken {
				message = "token expired"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}
		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}

// bearerToken extracts the Authorization bearer credential, if present.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
