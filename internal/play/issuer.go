package play

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"strings"
	"time"

	"github.com/google/logger"

	"luckyplay/internal/models"
	"luckyplay/internal/rewards"
)

type CapabilityProvider interface {
	Lookup(ctx context.Context, shop string) (rewards.Client, bool)
}

// Issued is the result of RewardIssuer.Issue. SoftFailure is non-empty when
// the code could not be registered externally; the play still goes ahead.
type Issued struct {
	Code        string
	ExternalRef string
	ExpiresAt   time.Time
	SoftFailure string
}

type RewardIssuer struct {
	Provider   CapabilityProvider
	CodePrefix string
	Expiry     time.Duration
	UsageLimit int
	Timeout    time.Duration
	now        func() time.Time
}

func NewRewardIssuer(provider CapabilityProvider) *RewardIssuer {
	return &RewardIssuer{
		Provider:   provider,
		CodePrefix: "WIN",
		Expiry:     30 * 24 * time.Hour,
		UsageLimit: 1,
		Timeout:    5 * time.Second,
		now:        time.Now,
	}
}

func (r *RewardIssuer) Issue(ctx context.Context, shop string, prize models.Prize) Issued {
	now := r.now()
	out := Issued{
		Code:      strings.TrimSpace(prize.Code),
		ExpiresAt: now.Add(r.Expiry),
	}
	if out.Code == "" {
		out.Code = NewRewardCode(r.CodePrefix, now)
	}

	sem, err := rewards.SemanticsFor(prize.Kind, prize.Value, prize.GiftVariantID)
	if err != nil {
		out.SoftFailure = "prize mapping: " + err.Error()
		r.logSoftFailure(shop, prize, out)
		return out
	}
	client, ok := r.Provider.Lookup(ctx, shop)
	if !ok {
		out.SoftFailure = "reward service unavailable: no credential for shop"
		r.logSoftFailure(shop, prize, out)
		return out
	}

	callCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	externalID, err := client.CreateReward(callCtx, out.Code, sem, rewards.Constraints{
		StartsAt:   now,
		EndsAt:     out.ExpiresAt,
		UsageLimit: r.UsageLimit,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			out.SoftFailure = fmt.Sprintf("reward service timed out after %s", r.Timeout)
		} else {
			out.SoftFailure = "reward service error: " + err.Error()
		}
		r.logSoftFailure(shop, prize, out)
		return out
	}
	out.ExternalRef = externalID
	return out
}

func (r *RewardIssuer) logSoftFailure(shop string, prize models.Prize, out Issued) {
	logger.Warningf("%s shop=%s prize=%d code=%s: %s", KindSoftFailure, shop, prize.ID, out.Code, out.SoftFailure)
}

var randRead = rand.Read

// NewRewardCode builds a timestamp-derived code with a random suffix.
func NewRewardCode(prefix string, now time.Time) string {
	buf := make([]byte, 4)
	if _, err := randRead(buf); err != nil {
		logger.Warningf("reward code entropy unavailable, using math/rand: %v", err)
		binary.BigEndian.PutUint32(buf, mrand.Uint32())
	}
	return strings.ToUpper(fmt.Sprintf("%s%d%s", prefix, now.UnixMilli(), hex.EncodeToString(buf)))
}
