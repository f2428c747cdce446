package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"luckyplay/internal/models"
)

type Kind string

const (
	KindPercentage   Kind = "percentage"
	KindFixedAmount  Kind = "fixed_amount"
	KindFreeShipping Kind = "free_shipping"
	KindFreeLineItem Kind = "free_line_item"
)

// Semantics describes what a reward code does at checkout.
type Semantics struct {
	Kind      Kind
	Value     decimal.Decimal
	VariantID string
}

type Constraints struct {
	StartsAt   time.Time
	EndsAt     time.Time
	UsageLimit int
}

// Client registers reward codes with the storefront's discount service.
type Client interface {
	CreateReward(ctx context.Context, code string, sem Semantics, cons Constraints) (string, error)
}

var ErrNoReward = errors.New("prize kind carries no reward")

// SemanticsFor maps a prize kind onto the discount service's semantics.
func SemanticsFor(kind models.PrizeKind, value decimal.Decimal, variantID string) (Semantics, error) {
	switch kind {
	case models.PrizePercentDiscount:
		if !value.IsPositive() || value.GreaterThan(decimal.NewFromInt(100)) {
			return Semantics{}, fmt.Errorf("invalid percentage %s", value)
		}
		return Semantics{Kind: KindPercentage, Value: value}, nil
	case models.PrizeFixedDiscount:
		if !value.IsPositive() {
			return Semantics{}, fmt.Errorf("invalid fixed amount %s", value)
		}
		return Semantics{Kind: KindFixedAmount, Value: value}, nil
	case models.PrizeFreeShipping:
		return Semantics{Kind: KindFreeShipping}, nil
	case models.PrizeFreeGift:
		if variantID == "" {
			return Semantics{}, errors.New("free gift prize has no variant")
		}
		return Semantics{Kind: KindFreeLineItem, VariantID: variantID}, nil
	default:
		return Semantics{}, ErrNoReward
	}
}
