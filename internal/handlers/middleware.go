package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"luckyplay/internal/rewards"
)

// AuthOptional binds the session's reward client to the request when a valid
// admin bearer token is present. Anonymous requests pass through untouched.
func (s *Server) AuthOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := getBearerToken(c.Request)
		if token == "" {
			c.Next()
			return
		}
		claims, accessToken, err := s.authenticate(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}
		client := rewards.NewHTTPClient(s.RewardHTTP, claims.Shop, accessToken)
		c.Request = c.Request.WithContext(rewards.WithClient(c.Request.Context(), claims.Shop, client))
		c.Set("shop", claims.Shop)
		c.Next()
	}
}

// AdminKeyRequired guards endpoints that only the operator's static key may call.
func (s *Server) AdminKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminToken := c.GetHeader("X-Admin-Token")
		if s.Cfg.AdminToken == "" || adminToken != s.Cfg.AdminToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "admin token required"})
			return
		}
		c.Next()
	}
}

// AdminRequired accepts the static admin key, which sees every shop, or a
// shop session token, which is scoped to its shop.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminToken := c.GetHeader("X-Admin-Token")
		if adminToken != "" && adminToken == s.Cfg.AdminToken {
			c.Set("admin", true)
			c.Next()
			return
		}

		token := getBearerToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing admin token"})
			return
		}
		claims, _, err := s.authenticate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, errInvalidSession) {
				status = http.StatusServiceUnavailable
			}
			c.AbortWithStatusJSON(status, gin.H{"success": false, "error": "session invalid"})
			return
		}
		c.Set("shop", claims.Shop)
		c.Next()
	}
}
