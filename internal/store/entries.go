package store

import (
	"context"
	"database/sql"
	"errors"

	"luckyplay/internal/models"
	"luckyplay/internal/play"
)

func (s *Store) FindByIdentity(ctx context.Context, campaignID int64, identityKey string) (*models.PlayEntry, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id, campaign_id, identity_key, customer_key, participant_kind, order_id, order_number,
		email, name, phone, prize_id, prize_name, prize_kind, prize_value, is_winner, reward_code, external_ref, status,
		created_at, expires_at
		FROM play_entries WHERE campaign_id=? AND identity_key=?`, campaignID, identityKey)
	var (
		e         models.PlayEntry
		code      sql.NullString
		extRef    sql.NullString
		expiresAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.CampaignID, &e.IdentityKey, &e.CustomerKey, &e.Participant, &e.OrderID, &e.OrderNumber,
		&e.Email, &e.Name, &e.Phone, &e.PrizeID, &e.PrizeName, &e.PrizeKind, &e.PrizeValue, &e.IsWinner, &code,
		&extRef, &e.Status, &e.CreatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, play.ErrNotFound
		}
		return nil, err
	}
	e.RewardCode = nullStringPtr(code)
	e.ExternalRef = nullStringPtr(extRef)
	e.ExpiresAt = nullTimePtr(expiresAt)
	return &e, nil
}

func (s *Store) CountByCustomer(ctx context.Context, campaignID int64, customerKey string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM play_entries WHERE campaign_id=? AND customer_key=?`,
		campaignID, customerKey).Scan(&n)
	return n, err
}
