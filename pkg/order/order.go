// Package order holds receipts of orders placed on the marketplace.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"marketplace/pkg/marketplace"
	"marketplace/pkg/product"
)

// Line is one product of an order with the number of units bought.
type Line = marketplace.Line[product.Product]

// Order represents a placed order.
type Order struct {
	ID       string    `json:"id"`
	CartID   int       `json:"cart_id"`
	Consumer string    `json:"consumer"`
	Lines    []Line    `json:"lines"`
	PlacedAt time.Time `json:"placed_at"`
}

// New builds an order receipt with a fresh id.
func New(cartID int, consumer string, lines []Line, placedAt time.Time) Order {
	return Order{
		ID:       uuid.NewString(),
		CartID:   cartID,
		Consumer: consumer,
		Lines:    lines,
		PlacedAt: placedAt.UTC(),
	}
}

// Units returns the total number of units in the order.
func (o Order) Units() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Total returns the summed price of all units.
func (o Order) Total() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Product.Price * l.Quantity
	}
	return total
}

// Repository defines behavior for archiving orders.
type Repository interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context) ([]Order, error)
	Delete(ctx context.Context, id string) error
}

var (
	// ErrNotFound indicates the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicate indicates an order id that is already archived.
	ErrDuplicate = errors.New("order already exists")
)
