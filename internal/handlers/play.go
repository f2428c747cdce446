package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"luckyplay/internal/models"
	"luckyplay/internal/play"
)

type playRequest struct {
	CampaignID  int64  `json:"campaignId"`
	Mode        string `json:"mode"`
	OrderNumber string `json:"orderNumber"`
	OrderID     string `json:"orderId"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
}

func (s *Server) Play(c *gin.Context) {
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	res, err := s.Engine.Play(c.Request.Context(), play.Request{
		CampaignID:  req.CampaignID,
		Mode:        models.CampaignMode(req.Mode),
		OrderNumber: req.OrderNumber,
		OrderID:     req.OrderID,
		Email:       req.Email,
		Name:        req.Name,
		Phone:       req.Phone,
	})
	if err != nil {
		s.playError(c, req.CampaignID, err)
		return
	}

	out := res.Outcome
	if res.Duplicate {
		prev := gin.H{
			"isWinner":  out.IsWinner,
			"prizeName": out.PrizeName,
		}
		if out.RewardCode != "" {
			prev["rewardCode"] = out.RewardCode
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       false,
			"hasPlayed":     true,
			"prizeId":       out.PrizeID,
			"previousEntry": prev,
		})
		return
	}
	body := gin.H{
		"success":   true,
		"prizeId":   out.PrizeID,
		"prizeName": out.PrizeName,
		"isWinner":  out.IsWinner,
	}
	if out.RewardCode != "" {
		body["rewardCode"] = out.RewardCode
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) playError(c *gin.Context, campaignID int64, err error) {
	var pe *play.Error
	if !errors.As(err, &pe) {
		logger.Errorf("play campaign=%d: %v", campaignID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal error"})
		return
	}
	status := http.StatusInternalServerError
	switch pe.Kind {
	case play.KindValidation, play.KindIneligible:
		status = http.StatusBadRequest
	case play.KindNotFound:
		status = http.StatusNotFound
	case play.KindExhausted:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("play campaign=%d: %v", campaignID, err)
	}
	c.JSON(status, gin.H{"success": false, "error": pe.Message, "kind": pe.Kind})
}
