// Package postgres archives orders in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"marketplace/pkg/order"
)

// Schema creates the orders table.
const Schema = `CREATE TABLE IF NOT EXISTS orders (
	id        TEXT PRIMARY KEY,
	cart_id   INT NOT NULL,
	consumer  TEXT NOT NULL,
	lines     JSONB NOT NULL,
	placed_at TIMESTAMPTZ NOT NULL
)`

const uniqueViolation = "23505"

// Repository persists orders in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate ensures the schema exists.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

// Create inserts a new order.
func (r *Repository) Create(ctx context.Context, o order.Order) error {
	lines, err := encodeLines(o.Lines)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO orders (id,cart_id,consumer,lines,placed_at) VALUES ($1,$2,$3,$4,$5)",
		o.ID, o.CartID, o.Consumer, lines, o.PlacedAt)
	if isUniqueViolation(err) {
		return order.ErrDuplicate
	}
	return err
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id,cart_id,consumer,lines,placed_at FROM orders WHERE id=$1", id)
	o, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	return o, err
}

// List fetches all orders, oldest first.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,cart_id,consumer,lines,placed_at FROM orders ORDER BY placed_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []order.Order
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Delete removes an order by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id=$1", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return order.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (order.Order, error) {
	var (
		o     order.Order
		lines []byte
	)
	if err := s.Scan(&o.ID, &o.CartID, &o.Consumer, &lines, &o.PlacedAt); err != nil {
		return order.Order{}, err
	}
	decoded, err := decodeLines(lines)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	o.Lines = decoded
	o.PlacedAt = o.PlacedAt.UTC()
	return o, nil
}

func encodeLines(lines []order.Line) ([]byte, error) {
	if lines == nil {
		lines = []order.Line{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode lines: %w", err)
	}
	return b, nil
}

func decodeLines(b []byte) ([]order.Line, error) {
	var lines []order.Line
	if err := json.Unmarshal(b, &lines); err != nil {
		return nil, fmt.Errorf("decode lines: %w", err)
	}
	return lines, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
