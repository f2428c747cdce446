package play

import (
	"context"

	"luckyplay/internal/models"
)

type CampaignStore interface {
	GetCampaign(ctx context.Context, id int64) (*models.Campaign, error)
	// ActivePrizes returns active prizes ordered by chance weight desc, id asc.
	ActivePrizes(ctx context.Context, campaignID int64) ([]models.Prize, error)
}

type OrderLedger interface {
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	FindByID(ctx context.Context, id string) (*models.Order, error)
}

type EntryStore interface {
	FindByIdentity(ctx context.Context, campaignID int64, identityKey string) (*models.PlayEntry, error)
	CountByCustomer(ctx context.Context, campaignID int64, customerKey string) (int, error)
}

// Recording is everything PlayRecorder commits in one transaction.
type Recording struct {
	Entry       models.PlayEntry
	OrderBacked bool
	// Failure is set when the reward code could not be registered externally.
	Failure *models.RewardFailure
}

// Recorder commits a Recording atomically. It returns ErrStockConflict when
// the guarded stock increment matched no row and ErrDuplicateEntry when the
// (campaign, identity) key already exists.
type Recorder interface {
	Record(ctx context.Context, rec Recording) error
}

// OutcomeCache is a read-through optimisation for duplicate plays. A miss
// returns nil, nil.
type OutcomeCache interface {
	Get(ctx context.Context, campaignID int64, identityKey string) (*Outcome, error)
	Put(ctx context.Context, campaignID int64, identityKey string, o Outcome) error
}

type Publisher interface {
	Publish(kind string, data any)
}

type Meter interface {
	Played(campaignID int64)
	SoftFailure(ctx context.Context, campaignID int64)
}

type WinnerNotifier interface {
	NotifyWinner(ctx context.Context, phone, prizeName, code string) error
}
