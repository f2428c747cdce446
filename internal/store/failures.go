package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"luckyplay/internal/models"
)

// Failures is the retry queue for rewards that never reached the reward
// service. Entries themselves are never touched.
type Failures struct {
	DB *sql.DB
	// Lease pushes next_attempt_at forward while a worker holds a job.
	Lease time.Duration
	// Now stamps due checks and leases. next_attempt_at is only ever compared
	// against a time bound from Go, never the server's NOW().
	Now func() time.Time
}

func (f *Failures) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

const failureColumns = `id, entry_id, campaign_id, shop, reward_code, prize_kind, prize_value, gift_variant_id,
		expires_at, reason, attempts, status, external_id, next_attempt_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFailure(row scanner) (*models.RewardFailure, error) {
	var (
		f         models.RewardFailure
		expiresAt sql.NullTime
		extID     sql.NullString
		nextAt    sql.NullTime
	)
	if err := row.Scan(&f.ID, &f.EntryID, &f.CampaignID, &f.Shop, &f.RewardCode, &f.PrizeKind, &f.PrizeValue,
		&f.GiftVariantID, &expiresAt, &f.Reason, &f.Attempts, &f.Status, &extID, &nextAt, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.ExpiresAt = nullTimePtr(expiresAt)
	f.ExternalID = nullString(extID)
	f.NextAttemptAt = nullTimePtr(nextAt)
	return &f, nil
}

// PickDue claims the oldest due pending failure, bumping its attempt count
// and leasing it. It returns nil, nil when nothing is due.
func (f *Failures) PickDue(ctx context.Context) (*models.RewardFailure, error) {
	tx, err := f.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	now := f.now()
	row := tx.QueryRowContext(ctx, `SELECT `+failureColumns+`
		FROM reward_failures
		WHERE status=? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		ORDER BY id ASC
		LIMIT 1 FOR UPDATE`, models.RewardFailurePending, now)
	job, err := scanFailure(row)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	job.Attempts++
	lease := now.Add(f.lease())
	if _, err := tx.ExecContext(ctx, `UPDATE reward_failures SET attempts=?, next_attempt_at=?, updated_at=? WHERE id=?`,
		job.Attempts, lease, now, job.ID); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	job.NextAttemptAt = &lease
	return job, nil
}

func (f *Failures) lease() time.Duration {
	if f.Lease <= 0 {
		return time.Minute
	}
	return f.Lease
}

func (f *Failures) Resolve(ctx context.Context, id int64, externalID string) error {
	_, err := f.DB.ExecContext(ctx, `UPDATE reward_failures SET status=?, external_id=?, next_attempt_at=NULL, updated_at=? WHERE id=?`,
		models.RewardFailureResolved, externalID, f.now(), id)
	return err
}

func (f *Failures) Reschedule(ctx context.Context, id int64, nextAt time.Time, reason string) error {
	_, err := f.DB.ExecContext(ctx, `UPDATE reward_failures SET reason=?, next_attempt_at=?, updated_at=? WHERE id=?`,
		truncate(reason, 512), nextAt, f.now(), id)
	return err
}

func (f *Failures) Abandon(ctx context.Context, id int64, reason string) error {
	_, err := f.DB.ExecContext(ctx, `UPDATE reward_failures SET status=?, reason=?, next_attempt_at=NULL, updated_at=? WHERE id=?`,
		models.RewardFailureAbandoned, truncate(reason, 512), f.now(), id)
	return err
}

// List returns a shop's failures with the given status, newest first. Empty
// filters match everything.
func (f *Failures) List(ctx context.Context, shop, status string, limit int) ([]models.RewardFailure, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT ` + failureColumns + ` FROM reward_failures`
	var (
		where []string
		args  []any
	)
	if shop != "" {
		where = append(where, "shop=?")
		args = append(args, shop)
	}
	if status != "" {
		where = append(where, "status=?")
		args = append(args, status)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := f.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.RewardFailure, 0)
	for rows.Next() {
		item, err := scanFailure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}
