package play

import (
	"context"
	"errors"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"luckyplay/internal/models"
)

// Result is a completed play. Duplicate results carry the prior outcome and
// no Entry when they were served from the cache.
type Result struct {
	Duplicate bool
	Outcome   Outcome
	Entry     *models.PlayEntry
}

type Engine struct {
	Campaigns CampaignStore
	Verifier  *Verifier
	Issuer    *RewardIssuer
	Recorder  Recorder
	Rand      Source

	Cache    OutcomeCache
	Feed     Publisher
	Meter    Meter
	Notifier WinnerNotifier

	now func() time.Time
}

func NewEngine(campaigns CampaignStore, verifier *Verifier, issuer *RewardIssuer, recorder Recorder) *Engine {
	return &Engine{
		Campaigns: campaigns,
		Verifier:  verifier,
		Issuer:    issuer,
		Recorder:  recorder,
		Rand:      DefaultSource(),
		now:       time.Now,
	}
}

func (e *Engine) Play(ctx context.Context, req Request) (*Result, error) {
	if req.CampaignID <= 0 {
		return nil, validation("Campaign id is required")
	}
	campaign, err := e.Campaigns.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Campaign not found")
		}
		return nil, storage("get campaign", err)
	}
	if req.Mode != "" && req.Mode != campaign.Mode {
		return nil, validation("Play mode does not match campaign")
	}
	if v := CheckValidity(campaign, e.now()); !v.OK {
		return nil, ineligible(v.Reason)
	}

	elig, err := e.Verifier.Verify(ctx, campaign, req)
	if err != nil {
		return nil, err
	}
	if elig.Prior != nil {
		return &Result{Duplicate: true, Outcome: *elig.Prior}, nil
	}
	return e.award(ctx, campaign, elig.Participant)
}

// award selects, issues and records. A lost stock race excludes the prize
// and selects again from a fresh snapshot; a lost duplicate race returns the
// winner's entry.
func (e *Engine) award(ctx context.Context, campaign *models.Campaign, p models.Participant) (*Result, error) {
	excluded := make(map[int64]bool)
	for attempt := 0; ; attempt++ {
		prizes, err := e.Campaigns.ActivePrizes(ctx, campaign.ID)
		if err != nil {
			return nil, storage("load prizes", err)
		}
		if attempt > len(prizes) {
			return nil, exhausted()
		}
		candidates := prizes[:0:0]
		for _, pr := range prizes {
			if !excluded[pr.ID] {
				candidates = append(candidates, pr)
			}
		}
		prize, err := SelectPrize(candidates, drawPercent(e.Rand))
		if err != nil {
			return nil, err
		}

		var issued *Issued
		if prize.Kind.IsReward() {
			out := e.Issuer.Issue(ctx, campaign.Shop, prize)
			issued = &out
		}
		rec := e.recording(campaign, p, prize, issued)

		err = e.Recorder.Record(ctx, rec)
		switch {
		case err == nil:
			return e.committed(ctx, campaign, rec, issued), nil
		case errors.Is(err, ErrStockConflict):
			e.logOrphan(campaign.ID, prize, issued, "stock race lost")
			logger.Infof("campaign=%d prize=%d stock exhausted during play, reselecting", campaign.ID, prize.ID)
			excluded[prize.ID] = true
		case errors.Is(err, ErrDuplicateEntry):
			e.logOrphan(campaign.ID, prize, issued, "duplicate race lost")
			entry, ferr := e.Verifier.Entries.FindByIdentity(ctx, campaign.ID, p.IdentityKey())
			if ferr != nil {
				return nil, storage("reload entry", ferr)
			}
			return &Result{Duplicate: true, Outcome: OutcomeFromEntry(entry), Entry: entry}, nil
		default:
			e.logOrphan(campaign.ID, prize, issued, "record failed")
			return nil, storage("record play", err)
		}
	}
}

func (e *Engine) recording(campaign *models.Campaign, p models.Participant, prize models.Prize, issued *Issued) Recording {
	now := e.now()
	name, phone, email := p.Contact()
	entry := models.PlayEntry{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		IdentityKey: p.IdentityKey(),
		CustomerKey: p.CustomerKey(),
		Participant: p.Kind(),
		Email:       email,
		Name:        name,
		Phone:       phone,
		PrizeID:     prize.ID,
		PrizeName:   prize.Name,
		PrizeKind:   prize.Kind,
		PrizeValue:  prize.Value,
		IsWinner:    prize.Kind.IsReward(),
		Status:      models.EntryPending,
		CreatedAt:   now,
	}
	rec := Recording{}
	if op, ok := p.(models.OrderParticipant); ok {
		entry.OrderID = op.OrderID
		entry.OrderNumber = op.OrderNumber
		rec.OrderBacked = true
	}
	if issued != nil {
		code := issued.Code
		entry.RewardCode = &code
		expires := issued.ExpiresAt
		entry.ExpiresAt = &expires
		if issued.ExternalRef != "" {
			ref := issued.ExternalRef
			entry.ExternalRef = &ref
		} else {
			rec.Failure = &models.RewardFailure{
				EntryID:       entry.ID,
				CampaignID:    campaign.ID,
				Shop:          campaign.Shop,
				RewardCode:    code,
				PrizeKind:     prize.Kind,
				PrizeValue:    prize.Value,
				GiftVariantID: prize.GiftVariantID,
				ExpiresAt:     &expires,
				Reason:        issued.SoftFailure,
				Status:        models.RewardFailurePending,
				CreatedAt:     now,
			}
		}
	}
	rec.Entry = entry
	return rec
}

func (e *Engine) committed(ctx context.Context, campaign *models.Campaign, rec Recording, issued *Issued) *Result {
	entry := rec.Entry
	outcome := OutcomeFromEntry(&entry)
	if e.Cache != nil {
		if err := e.Cache.Put(ctx, campaign.ID, entry.IdentityKey, outcome); err != nil {
			logger.Warningf("outcome cache put campaign=%d: %v", campaign.ID, err)
		}
	}
	if e.Meter != nil {
		e.Meter.Played(campaign.ID)
		if rec.Failure != nil {
			e.Meter.SoftFailure(ctx, campaign.ID)
		}
	}
	if e.Feed != nil {
		e.Feed.Publish("play", map[string]any{
			"shop":        campaign.Shop,
			"campaign_id": campaign.ID,
			"entry_id":    entry.ID,
			"prize_id":    entry.PrizeID,
			"is_winner":   entry.IsWinner,
		})
		if rec.Failure != nil {
			e.Feed.Publish("reward_failure", map[string]any{
				"shop":        campaign.Shop,
				"campaign_id": campaign.ID,
				"entry_id":    entry.ID,
				"reason":      rec.Failure.Reason,
			})
		}
	}
	if e.Notifier != nil && entry.IsWinner && entry.Phone != "" && issued != nil {
		go e.notify(entry.Phone, entry.PrizeName, issued.Code)
	}
	return &Result{Outcome: outcome, Entry: &entry}
}

func (e *Engine) notify(phone, prizeName, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Notifier.NotifyWinner(ctx, phone, prizeName, code); err != nil {
		logger.Warningf("winner notification failed: %v", err)
	}
}

func (e *Engine) logOrphan(campaignID int64, prize models.Prize, issued *Issued, why string) {
	if issued == nil || issued.ExternalRef == "" {
		return
	}
	logger.Warningf("orphaned reward campaign=%d prize=%d code=%s external=%s: %s",
		campaignID, prize.ID, issued.Code, issued.ExternalRef, why)
}
