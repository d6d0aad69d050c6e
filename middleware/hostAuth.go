package middleware

import (
	"net/http"
	"strings"

	hostRepo "schedly/database/repository/host"
	"schedly/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuthHostMiddleware authenticates host API calls and puts the host id on
// the request context under "hostID".
func JWTAuthHostMiddleware(hosts hostRepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		hostID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil || hostID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
			})
			return
		}

		host, err := hosts.GetHostByID(c.Request.Context(), hostID)
		if err != nil || host == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication error",
			})
			return
		}

		c.Set("hostID", host.ID)
		c.Next()
	}
}
