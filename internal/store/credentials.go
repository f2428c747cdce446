package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"luckyplay/internal/rewards"
)

// Credentials persists per-shop access tokens so a reward client can be
// rebuilt outside an authenticated session.
type Credentials struct {
	DB *sql.DB
}

func (c *Credentials) AccessToken(ctx context.Context, shop string) (string, error) {
	var token string
	err := c.DB.QueryRowContext(ctx, `SELECT access_token FROM shop_credentials WHERE shop=?`,
		strings.ToLower(strings.TrimSpace(shop))).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", rewards.ErrNoCredential
		}
		return "", err
	}
	return token, nil
}

func (c *Credentials) Save(ctx context.Context, shop, token string) error {
	_, err := c.DB.ExecContext(ctx, `INSERT INTO shop_credentials (shop, access_token, updated_at) VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE access_token=VALUES(access_token), updated_at=NOW()`,
		strings.ToLower(strings.TrimSpace(shop)), token)
	return err
}
