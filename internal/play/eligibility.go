package play

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/logger"

	"luckyplay/internal/models"
)

// Request is an inbound play.
type Request struct {
	CampaignID  int64
	Mode        models.CampaignMode
	OrderNumber string
	OrderID     string
	Email       string
	Name        string
	Phone       string
}

// Outcome is what a client needs to replay a previous play.
type Outcome struct {
	PrizeID    int64  `json:"prize_id"`
	PrizeName  string `json:"prize_name"`
	IsWinner   bool   `json:"is_winner"`
	RewardCode string `json:"reward_code,omitempty"`
}

func OutcomeFromEntry(e *models.PlayEntry) Outcome {
	o := Outcome{PrizeID: e.PrizeID, PrizeName: e.PrizeName, IsWinner: e.IsWinner}
	if e.RewardCode != nil {
		o.RewardCode = *e.RewardCode
	}
	return o
}

// Eligibility is the verifier's answer: either a participant cleared to play,
// or the prior outcome of one who already has.
type Eligibility struct {
	Participant models.Participant
	Prior       *Outcome
}

type Verifier struct {
	Orders  OrderLedger
	Entries EntryStore
	Cache   OutcomeCache
}

func (v *Verifier) Verify(ctx context.Context, c *models.Campaign, req Request) (*Eligibility, error) {
	switch c.Mode {
	case models.ModeOrder:
		return v.verifyOrder(ctx, c, req)
	case models.ModeEmailForm:
		return v.verifyForm(ctx, c, req)
	default:
		return nil, validation("Unsupported campaign mode")
	}
}

func (v *Verifier) verifyOrder(ctx context.Context, c *models.Campaign, req Request) (*Eligibility, error) {
	number := strings.TrimSpace(req.OrderNumber)
	id := strings.TrimSpace(req.OrderID)
	if number == "" && id == "" {
		return nil, validation("Order number is required")
	}
	var (
		order *models.Order
		err   error
	)
	if id != "" {
		order, err = v.Orders.FindByID(ctx, id)
	} else {
		order, err = v.Orders.FindByNumber(ctx, strings.TrimPrefix(number, "#"))
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Order not found")
		}
		return nil, storage("find order", err)
	}
	p := models.NewOrderParticipant(order)

	prior, err := v.prior(ctx, c.ID, p.IdentityKey())
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return &Eligibility{Participant: p, Prior: prior}, nil
	}

	// An empty allowed status means any order status qualifies.
	if allowed := strings.TrimSpace(c.AllowedOrderStatus); allowed != "" && !strings.EqualFold(strings.TrimSpace(p.Status), allowed) {
		return nil, ineligible("Order status is not eligible for this campaign")
	}
	if p.Amount.LessThan(c.MinOrderAmount) {
		return nil, ineligible("Order amount must be at least " + c.MinOrderAmount.StringFixed(2))
	}
	if err := v.checkLimit(ctx, c, p.CustomerKey()); err != nil {
		return nil, err
	}
	return &Eligibility{Participant: p}, nil
}

func (v *Verifier) verifyForm(ctx context.Context, c *models.Campaign, req Request) (*Eligibility, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return nil, validation("Email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, validation("Email is invalid")
	}
	p := models.FormParticipant{
		Email: email,
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
	}
	if c.RequireName && p.Name == "" {
		return nil, validation("Name is required")
	}
	if c.RequirePhone && p.Phone == "" {
		return nil, validation("Phone is required")
	}

	prior, err := v.prior(ctx, c.ID, p.IdentityKey())
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return &Eligibility{Participant: p, Prior: prior}, nil
	}
	if err := v.checkLimit(ctx, c, p.CustomerKey()); err != nil {
		return nil, err
	}
	return &Eligibility{Participant: p}, nil
}

// prior finds an earlier play for the identity. The cache is consulted first
// and its errors are not fatal; the entry store is authoritative.
func (v *Verifier) prior(ctx context.Context, campaignID int64, identityKey string) (*Outcome, error) {
	if v.Cache != nil {
		o, err := v.Cache.Get(ctx, campaignID, identityKey)
		if err != nil {
			logger.Warningf("outcome cache get campaign=%d key=%s: %v", campaignID, identityKey, err)
		} else if o != nil {
			return o, nil
		}
	}
	entry, err := v.Entries.FindByIdentity(ctx, campaignID, identityKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, storage("find entry", err)
	}
	o := OutcomeFromEntry(entry)
	return &o, nil
}

func (v *Verifier) checkLimit(ctx context.Context, c *models.Campaign, customerKey string) error {
	if c.MaxPlaysPerCustomer == nil || *c.MaxPlaysPerCustomer <= 0 {
		return nil
	}
	n, err := v.Entries.CountByCustomer(ctx, c.ID, customerKey)
	if err != nil {
		return storage("count entries", err)
	}
	if n >= *c.MaxPlaysPerCustomer {
		return ineligible("Maximum plays per customer reached")
	}
	return nil
}
