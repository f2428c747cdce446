// Package cache keeps the advisory Redis state: the duplicate-play fast path
// and the play-rate counters. Nothing here is authoritative.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"luckyplay/internal/play"
)

type Outcomes struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewOutcomes(rdb *redis.Client, ttl time.Duration) *Outcomes {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Outcomes{Redis: rdb, TTL: ttl}
}

func outcomeKey(campaignID int64, identityKey string) string {
	return fmt.Sprintf("play:%d:%s", campaignID, identityKey)
}

func (o *Outcomes) Get(ctx context.Context, campaignID int64, identityKey string) (*play.Outcome, error) {
	raw, err := o.Redis.Get(ctx, outcomeKey(campaignID, identityKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out play.Outcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode cached outcome: %w", err)
	}
	return &out, nil
}

// Put stores the outcome only if no other play cached one first.
func (o *Outcomes) Put(ctx context.Context, campaignID int64, identityKey string, out play.Outcome) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return o.Redis.SetNX(ctx, outcomeKey(campaignID, identityKey), raw, o.TTL).Err()
}
