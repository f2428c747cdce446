package store

import (
	"context"
	"fmt"

	"luckyplay/internal/play"
)

// Record commits one play: stock claim, entry, campaign counters and, for a
// soft-failed reward, the retry row. Either all of it lands or none of it.
func (s *Store) Record(ctx context.Context, rec play.Recording) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	e := rec.Entry
	res, err := tx.ExecContext(ctx, `UPDATE prizes SET used_stock=used_stock+1
		WHERE id=? AND (total_stock IS NULL OR used_stock < total_stock)`, e.PrizeID)
	if err != nil {
		return fmt.Errorf("claim stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim stock: %w", err)
	}
	if affected == 0 {
		return play.ErrStockConflict
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO play_entries (id, campaign_id, identity_key, customer_key, participant_kind,
		order_id, order_number, email, name, phone, prize_id, prize_name, prize_kind, prize_value, is_winner,
		reward_code, external_ref, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CampaignID, e.IdentityKey, e.CustomerKey, string(e.Participant), e.OrderID, e.OrderNumber, e.Email,
		e.Name, e.Phone, e.PrizeID, e.PrizeName, string(e.PrizeKind), e.PrizeValue, e.IsWinner, e.RewardCode,
		e.ExternalRef, string(e.Status), e.CreatedAt, e.ExpiresAt)
	if err != nil {
		if isDuplicateKey(err) {
			return play.ErrDuplicateEntry
		}
		return fmt.Errorf("insert entry: %w", err)
	}

	wins, orders := 0, 0
	if e.IsWinner {
		wins = 1
	}
	if rec.OrderBacked {
		orders = 1
	}
	if _, err := tx.ExecContext(ctx, `UPDATE campaigns SET total_plays=total_plays+1, total_wins=total_wins+?,
		total_orders=total_orders+?, updated_at=NOW() WHERE id=?`, wins, orders, e.CampaignID); err != nil {
		return fmt.Errorf("bump counters: %w", err)
	}

	if f := rec.Failure; f != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO reward_failures (entry_id, campaign_id, shop, reward_code, prize_kind,
			prize_value, gift_variant_id, expires_at, reason, attempts, status, next_attempt_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			f.EntryID, f.CampaignID, f.Shop, f.RewardCode, string(f.PrizeKind), f.PrizeValue, f.GiftVariantID,
			f.ExpiresAt, truncate(f.Reason, 512), f.Status, f.CreatedAt, f.CreatedAt); err != nil {
			return fmt.Errorf("insert reward failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
