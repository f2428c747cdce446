package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"

	"luckyplay/internal/models"
	"luckyplay/internal/play"
	"luckyplay/internal/rewards"
)

type failureQueue interface {
	PickDue(ctx context.Context) (*models.RewardFailure, error)
	Resolve(ctx context.Context, id int64, externalID string) error
	Reschedule(ctx context.Context, id int64, nextAt time.Time, reason string) error
	Abandon(ctx context.Context, id int64, reason string) error
}

// RewardWorker retries reward registrations that soft-failed during play. It
// only ever writes to the failure queue; play entries stay as recorded.
type RewardWorker struct {
	queue        failureQueue
	provider     play.CapabilityProvider
	feed         play.Publisher
	maxAttempts  int
	backoff      time.Duration
	maxBackoff   time.Duration
	pollInterval time.Duration
	timeout      time.Duration
	usageLimit   int
	now          func() time.Time
}

func NewRewardWorker(srv *Server) *RewardWorker {
	w := &RewardWorker{
		queue:        srv.Failures,
		provider:     srv.Rewards,
		maxAttempts:  srv.Cfg.RewardWorkerMaxAttempts,
		backoff:      srv.Cfg.RewardWorkerBackoff,
		maxBackoff:   time.Hour,
		pollInterval: 2 * time.Second,
		timeout:      srv.Cfg.RewardTimeout,
		usageLimit:   srv.Cfg.RewardUsageLimit,
		now:          time.Now,
	}
	if srv.Hub != nil {
		w.feed = srv.Hub
	}
	return w
}

func (w *RewardWorker) Run(ctx context.Context) {
	if w == nil || w.queue == nil {
		logger.Warningf("reward worker: queue not configured")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		processed, err := w.processOnce(ctx)
		if err != nil {
			logger.Warningf("reward worker error: %v", err)
		}
		if !processed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
		}
	}
}

func (w *RewardWorker) processOnce(ctx context.Context) (bool, error) {
	job, err := w.queue.PickDue(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	now := w.now()
	if job.ExpiresAt != nil && !job.ExpiresAt.After(now) {
		return true, w.abandon(ctx, job, "reward expired before registration")
	}
	sem, err := rewards.SemanticsFor(job.PrizeKind, job.PrizeValue, job.GiftVariantID)
	if err != nil {
		return true, w.abandon(ctx, job, "prize mapping: "+err.Error())
	}
	client, ok := w.provider.Lookup(ctx, job.Shop)
	if !ok {
		return true, w.retryLater(ctx, job, "reward service unavailable: no credential for shop")
	}

	cons := rewards.Constraints{StartsAt: now, UsageLimit: w.usageLimit}
	if job.ExpiresAt != nil {
		cons.EndsAt = *job.ExpiresAt
	}
	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	externalID, err := client.CreateReward(callCtx, job.RewardCode, sem, cons)
	cancel()
	if err != nil {
		reason := "reward service error: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("reward service timed out after %s", w.timeout)
		}
		return true, w.retryLater(ctx, job, reason)
	}
	if err := w.queue.Resolve(ctx, job.ID, externalID); err != nil {
		return true, err
	}
	logger.Infof("reward registered on retry entry=%s code=%s external=%s attempts=%d",
		job.EntryID, job.RewardCode, externalID, job.Attempts)
	w.publish("reward_resolved", job, externalID)
	return true, nil
}

func (w *RewardWorker) retryLater(ctx context.Context, job *models.RewardFailure, reason string) error {
	if job.Attempts >= w.maxAttempts {
		return w.abandon(ctx, job, reason)
	}
	return w.queue.Reschedule(ctx, job.ID, w.now().Add(w.delay(job.Attempts)), reason)
}

func (w *RewardWorker) abandon(ctx context.Context, job *models.RewardFailure, reason string) error {
	logger.Warningf("reward abandoned entry=%s code=%s after %d attempts: %s", job.EntryID, job.RewardCode, job.Attempts, reason)
	if err := w.queue.Abandon(ctx, job.ID, reason); err != nil {
		return err
	}
	w.publish("reward_abandoned", job, "")
	return nil
}

// delay doubles the base backoff per attempt, capped at maxBackoff.
func (w *RewardWorker) delay(attempts int) time.Duration {
	d := w.backoff
	if d <= 0 {
		d = 30 * time.Second
	}
	for i := 1; i < attempts; i++ {
		d *= 2
		if w.maxBackoff > 0 && d >= w.maxBackoff {
			return w.maxBackoff
		}
	}
	return d
}

func (w *RewardWorker) publish(kind string, job *models.RewardFailure, externalID string) {
	if w.feed == nil {
		return
	}
	w.feed.Publish(kind, map[string]any{
		"shop":        job.Shop,
		"campaign_id": job.CampaignID,
		"entry_id":    job.EntryID,
		"external_id": externalID,
		"attempts":    job.Attempts,
	})
}
