package play

import (
	"time"

	"luckyplay/internal/models"
)

type Validity struct {
	OK     bool
	Reason string
}

// CheckValidity reports whether a campaign is playable at now.
func CheckValidity(c *models.Campaign, now time.Time) Validity {
	if !c.Active {
		return Validity{Reason: "Campaign is not active"}
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return Validity{Reason: "Campaign has not started yet"}
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return Validity{Reason: "Campaign has ended"}
	}
	return Validity{OK: true}
}
