package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"marketplace/pkg/session"
)

// cartLease binds a cart handed out by this server to the session that owns
// it. Cart ids are only meaningful inside the marketplace that issued them,
// so a session without a lease here belongs to another process or to a cart
// that was already ordered or released.
type cartLease struct {
	cartID    int
	sessionID string

	// mu serializes requests on the cart; closed is set once the cart has
	// been ordered or released.
	mu     sync.Mutex
	closed bool
}

func (s *Server) openLease(sess session.Session) {
	s.leasesMu.Lock()
	defer s.leasesMu.Unlock()
	s.leases[sess.CartID] = &cartLease{cartID: sess.CartID, sessionID: sess.ID}
}

// lease returns the open lease held by sess.
func (s *Server) lease(sess session.Session) (*cartLease, bool) {
	s.leasesMu.Lock()
	defer s.leasesMu.Unlock()
	l, ok := s.leases[sess.CartID]
	if !ok || l.sessionID != sess.ID {
		return nil, false
	}
	return l, true
}

func (s *Server) dropLease(l *cartLease) {
	s.leasesMu.Lock()
	defer s.leasesMu.Unlock()
	if s.leases[l.cartID] == l {
		delete(s.leases, l.cartID)
	}
}

// lockCart acquires the lease of the request's session. It writes the error
// response and reports false when the cart is gone.
func (s *Server) lockCart(w http.ResponseWriter, r *http.Request) (*cartLease, bool) {
	l := leaseFrom(r.Context())
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		writeError(w, http.StatusConflict, "cart closed")
		return nil, false
	}
	return l, true
}

// releaseCart gives every unit reserved in the cart back to its producer.
// The caller holds the cart's lease.
func (s *Server) releaseCart(cartID int) (int, error) {
	lines, err := s.market.Contents(cartID)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, line := range lines {
		for i := 0; i < line.Quantity; i++ {
			if err := s.market.RemoveFromCart(cartID, line.Product); err != nil {
				return released, err
			}
			released++
		}
	}
	return released, nil
}

// closeLease releases the cart and retires the lease. The caller holds l.
func (s *Server) closeLease(ctx context.Context, l *cartLease) error {
	n, err := s.releaseCart(l.cartID)
	if err != nil {
		return err
	}
	l.closed = true
	s.dropLease(l)
	if n > 0 {
		s.log.Info(ctx, "cart released", "cart", l.cartID, "units", n)
	}
	return nil
}

// Sweep releases the carts of sessions that expired or were removed from
// the session store, returning their units to the producers. It reports the
// number of carts released.
func (s *Server) Sweep(ctx context.Context) (int, error) {
	s.leasesMu.Lock()
	open := make([]*cartLease, 0, len(s.leases))
	for _, l := range s.leases {
		open = append(open, l)
	}
	s.leasesMu.Unlock()

	swept := 0
	for _, l := range open {
		_, err := s.sessions.Get(ctx, l.sessionID)
		if err == nil {
			continue
		}
		if !errors.Is(err, session.ErrNotFound) {
			return swept, err
		}
		l.mu.Lock()
		if !l.closed {
			if err := s.closeLease(ctx, l); err != nil {
				l.mu.Unlock()
				return swept, err
			}
			swept++
		}
		l.mu.Unlock()
	}
	return swept, nil
}

// SweepEvery runs Sweep on every tick until ctx is done.
func (s *Server) SweepEvery(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error(ctx, "sweep carts", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info(ctx, "abandoned carts released", "carts", n)
			}
		}
	}
}
