package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/logger"
	"github.com/redis/go-redis/v9"
)

// softFailureLua bumps the hourly and lifetime soft-failure counters and
// returns the hourly value.
var softFailureLua = redis.NewScript(`
local hourKey = KEYS[1]
local totalKey = KEYS[2]
local ttl = tonumber(ARGV[1])

local n = redis.call('INCR', hourKey)
if ttl and ttl > 0 then
  redis.call('EXPIRE', hourKey, ttl)
end
redis.call('INCR', totalKey)
return n
`)

// Counters batches per-campaign play counts in memory and flushes them to
// per-second Redis buckets.
type Counters struct {
	Redis  *redis.Client
	counts sync.Map
	now    func() time.Time
}

func NewCounters(rdb *redis.Client) *Counters {
	return &Counters{Redis: rdb, now: time.Now}
}

func playsKey(campaignID, sec int64) string {
	return fmt.Sprintf("campaign:%d:plays:%d", campaignID, sec)
}

func softHourKey(campaignID, hour int64) string {
	return fmt.Sprintf("campaign:%d:soft_failures:%d", campaignID, hour)
}

func softTotalKey(campaignID int64) string {
	return fmt.Sprintf("campaign:%d:soft_failures", campaignID)
}

func (c *Counters) Played(campaignID int64) {
	if c == nil {
		return
	}
	val, _ := c.counts.LoadOrStore(campaignID, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// Start flushes once a second until ctx is done.
func (c *Counters) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.Flush(context.Background())
				return
			case <-ticker.C:
				c.Flush(ctx)
			}
		}
	}()
}

func (c *Counters) Flush(ctx context.Context) {
	if c == nil || c.Redis == nil {
		return
	}
	nowSec := c.now().Unix()
	pipe := c.Redis.Pipeline()
	has := false
	c.counts.Range(func(key, value any) bool {
		campaignID, ok := key.(int64)
		if !ok {
			return true
		}
		n := value.(*atomic.Int64).Swap(0)
		if n <= 0 {
			return true
		}
		has = true
		k := playsKey(campaignID, nowSec)
		pipe.IncrBy(ctx, k, n)
		pipe.Expire(ctx, k, 10*time.Second)
		return true
	})
	if has {
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warningf("play counter flush: %v", err)
		}
	}
}

func (c *Counters) SoftFailure(ctx context.Context, campaignID int64) {
	if c == nil || c.Redis == nil {
		return
	}
	hour := c.now().Unix() / 3600
	keys := []string{softHourKey(campaignID, hour), softTotalKey(campaignID)}
	if err := softFailureLua.Run(ctx, c.Redis, keys, int64(2*time.Hour/time.Second)).Err(); err != nil {
		logger.Warningf("soft failure counter campaign=%d: %v", campaignID, err)
	}
}

// Metrics is a snapshot of a campaign's recent activity.
type Metrics struct {
	PlaysPerSecAvg   int   `json:"plays_per_sec_avg"`
	PlaysLastSecond  int   `json:"plays_last_second"`
	SoftFailuresHour int64 `json:"soft_failures_hour"`
	SoftFailuresAll  int64 `json:"soft_failures_total"`
}

// Snapshot averages the last five one-second buckets.
func (c *Counters) Snapshot(ctx context.Context, campaignID int64) (Metrics, error) {
	var m Metrics
	now := c.now()
	sec := now.Unix()
	pipe := c.Redis.Pipeline()
	buckets := make([]*redis.StringCmd, 5)
	for i := int64(0); i < 5; i++ {
		buckets[i] = pipe.Get(ctx, playsKey(campaignID, sec-i))
	}
	hour := pipe.Get(ctx, softHourKey(campaignID, sec/3600))
	total := pipe.Get(ctx, softTotalKey(campaignID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return m, err
	}
	var sum int64
	for i, cmd := range buckets {
		val, _ := cmd.Int64()
		if i == 0 {
			m.PlaysLastSecond = int(val)
		}
		sum += val
	}
	m.PlaysPerSecAvg = int(sum / 5)
	m.SoftFailuresHour, _ = hour.Int64()
	m.SoftFailuresAll, _ = total.Int64()
	return m, nil
}
