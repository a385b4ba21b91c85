// Package sim drives a marketplace with producer and consumer workers.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"marketplace/pkg/logger"
	"marketplace/pkg/marketplace"
	"marketplace/pkg/product"
)

// Market is the part of the marketplace the workers use.
type Market interface {
	RegisterProducer() string
	Publish(producerID string, p product.Product) (bool, error)
	NewCart() int
	AddToCart(cartID int, p product.Product) (bool, error)
	RemoveFromCart(cartID int, p product.Product) error
	PlaceOrder(cartID int) ([]marketplace.Line[product.Product], error)
}

// Supply is one entry of a producer's production cycle.
type Supply struct {
	Product  product.Product
	Quantity int
	// Wait is the time spent making each unit after it is published.
	Wait time.Duration
}

// Producer publishes its supplies in a loop until its context ends.
type Producer struct {
	Supplies      []Supply
	RepublishWait time.Duration
}

// Run registers the producer and publishes until ctx is done. Every supply
// must have a positive quantity.
func (p Producer) Run(ctx context.Context, m Market) error {
	for i, s := range p.Supplies {
		if s.Quantity <= 0 {
			return fmt.Errorf("supply %d: quantity must be positive, got %d", i, s.Quantity)
		}
	}
	id := m.RegisterProducer()
	if len(p.Supplies) == 0 {
		<-ctx.Done()
		return nil
	}
	for ctx.Err() == nil {
		for _, s := range p.Supplies {
			for made := 0; made < s.Quantity; {
				ok, err := m.Publish(id, s.Product)
				if err != nil {
					return err
				}
				wait := p.RepublishWait
				if ok {
					made++
					wait = s.Wait
				}
				if !sleep(ctx, wait) {
					return nil
				}
			}
		}
	}
	return nil
}

// OpType selects a cart operation.
type OpType string

const (
	OpAdd    OpType = "add"
	OpRemove OpType = "remove"
)

// Op is one cart operation applied Quantity times.
type Op struct {
	Type     OpType
	Product  product.Product
	Quantity int
}

// Purchase is one unit bought by a consumer.
type Purchase struct {
	Consumer string
	Product  product.Product
}

func (p Purchase) String() string {
	return fmt.Sprintf("%s bought %s", p.Consumer, p.Product)
}

// Consumer fills and orders each of its carts in turn.
type Consumer struct {
	Name      string
	Carts     [][]Op
	RetryWait time.Duration
}

// Run processes every cart, reporting bought units to record.
func (c Consumer) Run(ctx context.Context, m Market, record func(Purchase)) error {
	for _, ops := range c.Carts {
		cart := m.NewCart()
		for _, op := range ops {
			if err := c.apply(ctx, m, cart, op); err != nil {
				return fmt.Errorf("%s cart %d: %w", c.Name, cart, err)
			}
		}
		lines, err := m.PlaceOrder(cart)
		if err != nil {
			return fmt.Errorf("%s cart %d: %w", c.Name, cart, err)
		}
		for _, l := range lines {
			for i := 0; i < l.Quantity; i++ {
				record(Purchase{Consumer: c.Name, Product: l.Product})
			}
		}
	}
	return nil
}

func (c Consumer) apply(ctx context.Context, m Market, cart int, op Op) error {
	switch op.Type {
	case OpAdd:
		for got := 0; got < op.Quantity; {
			ok, err := m.AddToCart(cart, op.Product)
			if err != nil {
				return err
			}
			if ok {
				got++
				continue
			}
			if !sleep(ctx, c.RetryWait) {
				return ctx.Err()
			}
		}
	case OpRemove:
		for i := 0; i < op.Quantity; i++ {
			if err := m.RemoveFromCart(cart, op.Product); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown operation %q", op.Type)
	}
	return nil
}

// Run starts all producers, runs every consumer to completion, then stops
// the producers. Purchases are returned in the order they were recorded.
func Run(ctx context.Context, log *logger.Logger, m Market, producers []Producer, consumers []Consumer) ([]Purchase, error) {
	prodCtx, stopProducers := context.WithCancel(ctx)
	defer stopProducers()

	pg, pctx := errgroup.WithContext(prodCtx)
	for i, p := range producers {
		i, p := i, p
		pg.Go(func() error {
			if err := p.Run(pctx, m); err != nil {
				log.Error(pctx, "producer failed", "producer", i, "error", err)
				return err
			}
			return nil
		})
	}

	var (
		mu        sync.Mutex
		purchases []Purchase
	)
	record := func(p Purchase) {
		mu.Lock()
		purchases = append(purchases, p)
		mu.Unlock()
	}

	cg, cctx := errgroup.WithContext(pctx)
	for _, c := range consumers {
		c := c
		cg.Go(func() error {
			if err := c.Run(cctx, m, record); err != nil {
				return err
			}
			log.Debug(cctx, "consumer done", "consumer", c.Name)
			return nil
		})
	}
	consumerErr := cg.Wait()

	stopProducers()
	producerErr := pg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return purchases, errors.Join(consumerErr, producerErr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
