package store

import (
	"context"
	"database/sql"
	"errors"

	"luckyplay/internal/models"
	"luckyplay/internal/play"
)

// Orders reads the order ledger. Rows are written by the storefront sync.
type Orders struct {
	DB *sql.DB
}

const orderColumns = `id, number, amount, status, customer_id, customer_name, customer_phone, customer_email`

func (o *Orders) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	return o.scan(o.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE number=?`, number))
}

func (o *Orders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return o.scan(o.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=?`, id))
}

func (o *Orders) scan(row *sql.Row) (*models.Order, error) {
	var ord models.Order
	err := row.Scan(&ord.ID, &ord.Number, &ord.Amount, &ord.Status, &ord.Customer.ID, &ord.Customer.Name,
		&ord.Customer.Phone, &ord.Customer.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, play.ErrNotFound
		}
		return nil, err
	}
	return &ord, nil
}
