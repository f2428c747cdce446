package store

import (
	"context"
	"database/sql"
	"errors"

	"luckyplay/internal/models"
	"luckyplay/internal/play"
)

const campaignColumns = `id, shop, name, mode, active, start_at, end_at, min_order_amount, allowed_order_status,
		max_plays_per_customer, require_name, require_phone, total_plays, total_wins, total_orders, created_at, updated_at`

func (s *Store) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id=?`, id)
	var (
		c        models.Campaign
		startAt  sql.NullTime
		endAt    sql.NullTime
		maxPlays sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Shop, &c.Name, &c.Mode, &c.Active, &startAt, &endAt, &c.MinOrderAmount,
		&c.AllowedOrderStatus, &maxPlays, &c.RequireName, &c.RequirePhone, &c.TotalPlays, &c.TotalWins,
		&c.TotalOrders, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, play.ErrNotFound
		}
		return nil, err
	}
	c.StartAt = nullTimePtr(startAt)
	c.EndAt = nullTimePtr(endAt)
	c.MaxPlaysPerCustomer = nullIntPtr(maxPlays)
	return &c, nil
}

func (s *Store) ActivePrizes(ctx context.Context, campaignID int64) ([]models.Prize, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, campaign_id, name, kind, value, chance_weight, total_stock, used_stock, code, gift_variant_id, active
		FROM prizes
		WHERE campaign_id=? AND active=1
		ORDER BY chance_weight DESC, id ASC`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prizes := make([]models.Prize, 0)
	for rows.Next() {
		var (
			p       models.Prize
			stock   sql.NullInt64
			code    sql.NullString
			variant sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.Name, &p.Kind, &p.Value, &p.ChanceWeight, &stock,
			&p.UsedStock, &code, &variant, &p.Active); err != nil {
			return nil, err
		}
		p.TotalStock = nullIntPtr(stock)
		p.Code = nullString(code)
		p.GiftVariantID = nullString(variant)
		prizes = append(prizes, p)
	}
	return prizes, rows.Err()
}

// GetWithPrizes loads a campaign together with its active prizes.
func (s *Store) GetWithPrizes(ctx context.Context, id int64) (*models.Campaign, []models.Prize, error) {
	c, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	prizes, err := s.ActivePrizes(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return c, prizes, nil
}
