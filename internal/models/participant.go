package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Participant is either an OrderParticipant or a FormParticipant. Each variant
// carries its own uniqueness key so the two campaign modes never share one.
type Participant interface {
	Kind() ParticipantKind
	// IdentityKey is unique per campaign: one entry per key, ever.
	IdentityKey() string
	// CustomerKey groups entries for the max-plays-per-customer rule.
	CustomerKey() string
	// Contact returns name, phone and email for the entry snapshot.
	Contact() (name, phone, email string)
}

type OrderParticipant struct {
	OrderID     string
	OrderNumber string
	Amount      decimal.Decimal
	Status      string
	CustomerID  string
	Name        string
	Phone       string
	Email       string
}

func NewOrderParticipant(o *Order) OrderParticipant {
	return OrderParticipant{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Amount:      o.Amount,
		Status:      o.Status,
		CustomerID:  strings.TrimSpace(o.Customer.ID),
		Name:        strings.TrimSpace(o.Customer.Name),
		Phone:       strings.TrimSpace(o.Customer.Phone),
		Email:       NormalizeEmail(o.Customer.Email),
	}
}

func (p OrderParticipant) Kind() ParticipantKind { return ParticipantOrder }

func (p OrderParticipant) IdentityKey() string { return "order:" + p.OrderID }

func (p OrderParticipant) CustomerKey() string {
	if p.CustomerID != "" {
		return "customer:" + p.CustomerID
	}
	if p.Email != "" {
		return "email:" + p.Email
	}
	return p.IdentityKey()
}

func (p OrderParticipant) Contact() (string, string, string) {
	return p.Name, p.Phone, p.Email
}

type FormParticipant struct {
	Email string
	Name  string
	Phone string
}

func (p FormParticipant) Kind() ParticipantKind { return ParticipantForm }

func (p FormParticipant) IdentityKey() string { return "email:" + p.Email }

func (p FormParticipant) CustomerKey() string { return "email:" + p.Email }

func (p FormParticipant) Contact() (string, string, string) {
	return p.Name, p.Phone, p.Email
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
