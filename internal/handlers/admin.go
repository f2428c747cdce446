package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"luckyplay/internal/cache"
	"luckyplay/internal/play"
)

type sessionRequest struct {
	Shop        string `json:"shop"`
	AccessToken string `json:"accessToken"`
}

// CreateSession records a shop's access token and opens an admin session for it.
func (s *Server) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	shop := normalizeShop(req.Shop)
	token := strings.TrimSpace(req.AccessToken)
	if shop == "" || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "shop and accessToken are required"})
		return
	}
	jwtToken, expiresAt, err := s.SignSession(c.Request.Context(), shop, token)
	if err != nil {
		logger.Errorf("create session shop=%s: %v", shop, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Unable to create session"})
		return
	}
	logger.Infof("admin session opened shop=%s", shop)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     jwtToken,
		"shop":      shop,
		"expiresAt": expiresAt.UnixMilli(),
	})
}

// GetMetrics reports a campaign's recorded totals and its recent play rate.
func (s *Server) GetMetrics(c *gin.Context) {
	campaignID, err := strconv.ParseInt(c.Query("campaignId"), 10, 64)
	if err != nil || campaignID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "campaignId is required"})
		return
	}
	ctx := c.Request.Context()
	campaign, err := s.Store.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, play.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Campaign not found"})
			return
		}
		logger.Errorf("metrics campaign=%d: %v", campaignID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal error"})
		return
	}
	if shop := c.GetString("shop"); shop != "" && shop != normalizeShop(campaign.Shop) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Campaign not found"})
		return
	}
	var live cache.Metrics
	if s.Counters != nil {
		live, err = s.Counters.Snapshot(ctx, campaignID)
		if err != nil {
			logger.Warningf("metrics snapshot campaign=%d: %v", campaignID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"campaignId":  campaign.ID,
		"totalPlays":  campaign.TotalPlays,
		"totalWins":   campaign.TotalWins,
		"totalOrders": campaign.TotalOrders,
		"live":        live,
		"feedClients": s.Hub.OnlineCount(),
	})
}

// ListRewardFailures lists soft-failed rewards, pending ones by default.
func (s *Server) ListRewardFailures(c *gin.Context) {
	status := c.DefaultQuery("status", "pending")
	if status == "all" {
		status = ""
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	shop := c.GetString("shop")
	if shop == "" {
		shop = normalizeShop(c.Query("shop"))
	}
	items, err := s.Failures.List(c.Request.Context(), shop, status, limit)
	if err != nil {
		logger.Errorf("list reward failures: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}
