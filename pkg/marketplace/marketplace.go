// Package marketplace coordinates producers publishing units into bounded
// personal queues and consumers reserving those units into carts.
//
// Every operation is a non-blocking poll. Publish and AddToCart report
// backpressure through their boolean result and callers decide how long to
// wait before trying again.
package marketplace

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

const producerPrefix = "prod"

var (
	// ErrInvalidQueueSize is returned by New for a non-positive capacity.
	ErrInvalidQueueSize = errors.New("queue size must be positive")
	// ErrUnknownProducer indicates a producer id that was never registered.
	ErrUnknownProducer = errors.New("unknown producer")
	// ErrUnknownCart indicates a cart id that was never created.
	ErrUnknownCart = errors.New("unknown cart")
	// ErrNotInCart indicates a removal of a product the cart does not hold.
	ErrNotInCart = errors.New("product not in cart")
)

// Line is one entry of a placed order.
type Line[P comparable] struct {
	Product  P   `json:"product"`
	Quantity int `json:"quantity"`
}

// Marketplace is safe for use by any number of goroutines.
//
// Lock discipline: a call holds at most one producer lock at a time and
// never holds a producer lock together with a registry lock or a cart lock.
type Marketplace[P comparable] struct {
	queueSize int
	observer  Observer

	producersMu sync.RWMutex
	producers   map[string]*producer[P]
	registered  []*producer[P]

	cartsMu sync.RWMutex
	carts   []*cart[P]
}

// Option configures a Marketplace.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver reports operation outcomes to o.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// New returns a marketplace whose producers each hold at most queueSize
// published units.
func New[P comparable](queueSize int, opts ...Option) (*Marketplace[P], error) {
	if queueSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}
	o := options{observer: NopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Marketplace[P]{
		queueSize: queueSize,
		observer:  o.observer,
		producers: make(map[string]*producer[P]),
	}, nil
}

// QueueSize returns the per-producer capacity.
func (m *Marketplace[P]) QueueSize() int {
	return m.queueSize
}

// RegisterProducer allocates a fresh producer id and an empty queue for it.
func (m *Marketplace[P]) RegisterProducer() string {
	m.producersMu.Lock()
	defer m.producersMu.Unlock()

	id := producerPrefix + strconv.Itoa(len(m.registered))
	p := newProducer[P](id)
	m.producers[id] = p
	m.registered = append(m.registered, p)
	return id
}

// Producers returns the registered producer ids in registration order.
func (m *Marketplace[P]) Producers() []string {
	m.producersMu.RLock()
	defer m.producersMu.RUnlock()

	ids := make([]string, len(m.registered))
	for i, p := range m.registered {
		ids[i] = p.id
	}
	return ids
}

// Publish appends product to the producer's queue. It returns false without
// side effects when the queue already holds QueueSize units.
func (m *Marketplace[P]) Publish(producerID string, product P) (bool, error) {
	p, err := m.producer(producerID)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	accepted := len(p.queue) < m.queueSize
	if accepted {
		p.put(product)
	}
	p.mu.Unlock()

	m.observer.Published(producerID, accepted)
	return accepted, nil
}

// Stock returns a copy of the producer's unclaimed units, oldest first.
func (m *Marketplace[P]) Stock(producerID string) ([]P, error) {
	p, err := m.producer(producerID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]P, len(p.queue))
	copy(out, p.queue)
	return out, nil
}

// NewCart allocates a fresh, empty cart.
func (m *Marketplace[P]) NewCart() int {
	m.cartsMu.Lock()
	defer m.cartsMu.Unlock()

	id := len(m.carts)
	m.carts = append(m.carts, newCart[P]())
	return id
}

// AddToCart reserves one unit of product from the first producer, in
// registration order, that holds one. It returns false when no producer
// currently has the product; it never waits for stock to appear.
func (m *Marketplace[P]) AddToCart(cartID int, product P) (bool, error) {
	c, err := m.cart(cartID)
	if err != nil {
		return false, err
	}

	for _, p := range m.snapshot() {
		p.mu.Lock()
		taken := p.take(product)
		p.mu.Unlock()
		if !taken {
			continue
		}

		c.mu.Lock()
		c.reserve(product, p.id)
		c.mu.Unlock()

		m.observer.Reserved(cartID, p.id, true)
		return true, nil
	}

	m.observer.Reserved(cartID, "", false)
	return false, nil
}

// RemoveFromCart gives back the oldest reserved unit of product to the
// producer it was taken from. The unit goes to the tail of that producer's
// queue even if the producer has since refilled up to QueueSize.
func (m *Marketplace[P]) RemoveFromCart(cartID int, product P) error {
	c, err := m.cart(cartID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	producerID, ok := c.release(product)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("cart %d: %w", cartID, ErrNotInCart)
	}

	p, err := m.producer(producerID)
	if err != nil {
		// carts only ever record registered producers
		panic(err)
	}
	p.mu.Lock()
	p.put(product)
	p.mu.Unlock()

	m.observer.Returned(cartID, producerID)
	return nil
}

// PlaceOrder summarises the cart as one line per distinct product, in the
// order each product was first added. It is a snapshot: callers that need a
// final order must stop mutating the cart first. The cart is left intact.
func (m *Marketplace[P]) PlaceOrder(cartID int) ([]Line[P], error) {
	lines, err := m.Contents(cartID)
	if err != nil {
		return nil, err
	}

	units := 0
	for _, l := range lines {
		units += l.Quantity
	}
	m.observer.OrderPlaced(cartID, len(lines), units)
	return lines, nil
}

// Contents returns the same snapshot as PlaceOrder without reporting an
// order to the observer.
func (m *Marketplace[P]) Contents(cartID int) ([]Line[P], error) {
	c, err := m.cart(cartID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines(), nil
}

func (m *Marketplace[P]) producer(id string) (*producer[P], error) {
	m.producersMu.RLock()
	defer m.producersMu.RUnlock()

	p, ok := m.producers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProducer, id)
	}
	return p, nil
}

// snapshot returns the producers registered so far. The registry only
// grows, so the returned prefix stays valid after the lock is released.
func (m *Marketplace[P]) snapshot() []*producer[P] {
	m.producersMu.RLock()
	defer m.producersMu.RUnlock()
	return m.registered[:len(m.registered):len(m.registered)]
}

func (m *Marketplace[P]) cart(id int) (*cart[P], error) {
	m.cartsMu.RLock()
	defer m.cartsMu.RUnlock()

	if id < 0 || id >= len(m.carts) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCart, id)
	}
	return m.carts[id], nil
}
