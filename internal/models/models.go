package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CampaignMode string

const (
	ModeOrder     CampaignMode = "order"
	ModeEmailForm CampaignMode = "email_form"
)

type Campaign struct {
	ID                  int64           `json:"id"`
	Shop                string          `json:"shop"`
	Name                string          `json:"name"`
	Mode                CampaignMode    `json:"mode"`
	Active              bool            `json:"active"`
	StartAt             *time.Time      `json:"start_at,omitempty"`
	EndAt               *time.Time      `json:"end_at,omitempty"`
	MinOrderAmount      decimal.Decimal `json:"min_order_amount"`
	AllowedOrderStatus  string          `json:"allowed_order_status"`
	MaxPlaysPerCustomer *int            `json:"max_plays_per_customer,omitempty"`
	RequireName         bool            `json:"require_name"`
	RequirePhone        bool            `json:"require_phone"`
	TotalPlays          int64           `json:"total_plays"`
	TotalWins           int64           `json:"total_wins"`
	TotalOrders         int64           `json:"total_orders"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type PrizeKind string

const (
	PrizeNone            PrizeKind = "none"
	PrizePercentDiscount PrizeKind = "percent_discount"
	PrizeFixedDiscount   PrizeKind = "fixed_discount"
	PrizeFreeShipping    PrizeKind = "free_shipping"
	PrizeFreeGift        PrizeKind = "free_gift"
)

// IsReward reports whether winning this kind issues a reward code.
func (k PrizeKind) IsReward() bool {
	return k != PrizeNone && k != ""
}

type Prize struct {
	ID            int64           `json:"id"`
	CampaignID    int64           `json:"campaign_id"`
	Name          string          `json:"name"`
	Kind          PrizeKind       `json:"kind"`
	Value         decimal.Decimal `json:"value"`
	ChanceWeight  int             `json:"chance_weight"`
	TotalStock    *int            `json:"total_stock,omitempty"`
	UsedStock     int             `json:"used_stock"`
	Code          string          `json:"code,omitempty"`
	GiftVariantID string          `json:"gift_variant_id,omitempty"`
	Active        bool            `json:"active"`
}

// InStock is false once a stocked prize has been fully used.
func (p Prize) InStock() bool {
	return p.TotalStock == nil || p.UsedStock < *p.TotalStock
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Order is a row of the order ledger, populated by the storefront sync.
type Order struct {
	ID       string          `json:"id"`
	Number   string          `json:"number"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
	Customer Customer        `json:"customer"`
}

type EntryStatus string

const (
	EntryPending EntryStatus = "pending"
	EntryClaimed EntryStatus = "claimed"
	EntryExpired EntryStatus = "expired"
)

type ParticipantKind string

const (
	ParticipantOrder ParticipantKind = "order"
	ParticipantForm  ParticipantKind = "form"
)

// PlayEntry is the permanent record of one participant's play.
type PlayEntry struct {
	ID          string          `json:"id"`
	CampaignID  int64           `json:"campaign_id"`
	IdentityKey string          `json:"identity_key"`
	CustomerKey string          `json:"customer_key"`
	Participant ParticipantKind `json:"participant_kind"`
	OrderID     string          `json:"order_id,omitempty"`
	OrderNumber string          `json:"order_number,omitempty"`
	Email       string          `json:"email,omitempty"`
	Name        string          `json:"name,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	PrizeID     int64           `json:"prize_id"`
	PrizeName   string          `json:"prize_name"`
	PrizeKind   PrizeKind       `json:"prize_kind"`
	PrizeValue  decimal.Decimal `json:"prize_value"`
	IsWinner    bool            `json:"is_winner"`
	RewardCode  *string         `json:"reward_code,omitempty"`
	ExternalRef *string         `json:"external_ref,omitempty"`
	Status      EntryStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

const (
	RewardFailurePending   = "pending"
	RewardFailureResolved  = "resolved"
	RewardFailureAbandoned = "abandoned"
)

// RewardFailure tracks a winning entry whose code never reached the reward service.
type RewardFailure struct {
	ID            int64           `json:"id"`
	EntryID       string          `json:"entry_id"`
	CampaignID    int64           `json:"campaign_id"`
	Shop          string          `json:"shop"`
	RewardCode    string          `json:"reward_code"`
	PrizeKind     PrizeKind       `json:"prize_kind"`
	PrizeValue    decimal.Decimal `json:"prize_value"`
	GiftVariantID string          `json:"gift_variant_id,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Reason        string          `json:"reason"`
	Attempts      int             `json:"attempts"`
	Status        string          `json:"status"`
	ExternalID    string          `json:"external_id,omitempty"`
	NextAttemptAt *time.Time      `json:"next_attempt_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
