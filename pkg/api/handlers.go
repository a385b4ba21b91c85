package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"marketplace/pkg/marketplace"
	"marketplace/pkg/order"
	"marketplace/pkg/otel"
	"marketplace/pkg/product"
)

type producerResponse struct {
	ID string `json:"id"`
}

type publishResponse struct {
	Accepted bool `json:"accepted"`
}

type reserveResponse struct {
	Reserved bool `json:"reserved"`
}

type cartResponse struct {
	CartID int          `json:"cart_id"`
	Lines  []order.Line `json:"lines"`
}

// loginRequest represents a consumer starting to shop.
type loginRequest struct {
	Consumer string `json:"consumer"`
}

// registerProducerHandler registers a new producer.
// @Summary Register producer
// @Produce json
// @Success 201 {object} producerResponse
// @Router /producers [post]
func (s *Server) registerProducerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "registerProducerHandler")
	defer span.End()

	id := s.market.RegisterProducer()
	s.log.Info(ctx, "producer registered", "producer", id)
	writeJSON(w, http.StatusCreated, producerResponse{ID: id})
}

// listProducersHandler lists producers in registration order.
// @Summary List producers
// @Produce json
// @Success 200 {array} string
// @Router /producers [get]
func (s *Server) listProducersHandler(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "listProducersHandler")
	defer span.End()

	writeJSON(w, http.StatusOK, s.market.Producers())
}

// publishHandler publishes one unit for a producer.
// @Summary Publish product
// @Description Returns 429 when the producer's queue is full; retry after a backoff.
// @Accept json
// @Produce json
// @Param id path string true "Producer ID"
// @Param product body product.Product true "Product"
// @Success 202 {object} publishResponse
// @Failure 429 {object} publishResponse
// @Router /producers/{id}/products [post]
func (s *Server) publishHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "publishHandler")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("producer", id))
	p, err := decodeProduct(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := s.market.Publish(id, p)
	if err != nil {
		s.writeMarketError(w, r, err)
		return
	}
	if !ok {
		s.log.Debug(ctx, "queue full", "producer", id)
		writeJSON(w, http.StatusTooManyRequests, publishResponse{Accepted: false})
		return
	}
	writeJSON(w, http.StatusAccepted, publishResponse{Accepted: true})
}

// stockHandler lists a producer's unclaimed units.
// @Summary Producer stock
// @Produce json
// @Param id path string true "Producer ID"
// @Success 200 {array} product.Product
// @Router /producers/{id}/products [get]
func (s *Server) stockHandler(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "stockHandler")
	defer span.End()

	stock, err := s.market.Stock(mux.Vars(r)["id"])
	if err != nil {
		s.writeMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// loginHandler creates a cart and a session for a consumer.
// @Summary Login
// @Description Creates a new cart and sets the session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Consumer"
// @Success 200 {object} cartResponse
// @Router /login [post]
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "loginHandler")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Consumer) == "" {
		writeError(w, http.StatusBadRequest, "invalid consumer")
		return
	}
	sess, err := s.startCart(ctx, req.Consumer)
	if err != nil {
		s.log.Error(ctx, "create session", "error", err)
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	s.setSessionCookie(w, sess)
	s.log.Info(ctx, "consumer logged in", "consumer", req.Consumer, "cart", sess.CartID)
	writeJSON(w, http.StatusOK, cartResponse{CartID: sess.CartID, Lines: []order.Line{}})
}

// logoutHandler ends the session and returns the cart's reserved units to
// their producers.
// @Summary Logout
// @Success 204
// @Router /cart/logout [post]
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "logoutHandler")
	defer span.End()

	l, ok := s.lockCart(w, r)
	if !ok {
		return
	}
	err := s.closeLease(ctx, l)
	l.mu.Unlock()
	if err != nil {
		s.writeMarketError(w, r, err)
		return
	}

	if err := s.sessions.Delete(ctx, sessionFrom(ctx).ID); err != nil {
		s.log.Warn(ctx, "delete session", "error", err)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// viewCartHandler shows the current cart contents.
// @Summary View cart
// @Produce json
// @Success 200 {object} cartResponse
// @Router /cart [get]
func (s *Server) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "viewCartHandler")
	defer span.End()

	l, ok := s.lockCart(w, r)
	if !ok {
		return
	}
	defer l.mu.Unlock()

	cartID := l.cartID
	lines, err := s.market.Contents(cartID)
	if err != nil {
		s.writeMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{CartID: cartID, Lines: lines})
}

// addToCartHandler reserves one unit into the session's cart.
// @Summary Add to cart
// @Description Returns 409 when no producer currently has the product; retry later.
// @Accept json
// @Produce json
// @Param product body product.Product true "Product"
// @Success 200 {object} reserveResponse
// @Failure 409 {object} reserveResponse
// @Router /cart/items [post]
func (s *Server) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "addToCartHandler")
	defer span.End()

	p, err := decodeProduct(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, ok := s.lockCart(w, r)
	if !ok {
		return
	}
	defer l.mu.Unlock()

	span.SetAttributes(attribute.Int("cart", l.cartID))
	ok, err = s.market.AddToCart(l.cartID, p)
	if err != nil {
		s.writeMarketError(w, r, err)
		return
	}
	if !ok {
		s.log.Debug(ctx, "product unavailable", "cart", l.cartID)
		writeJSON(w, http.StatusConflict, reserveResponse{Reserved: false})
		return
	}
	writeJSON(w, http.StatusOK, reserveResponse{Reserved: true})
}

// removeFromCartHandler returns the oldest reserved unit of a product.
// @Summary Remove from cart
// @Accept json
// @Param product body product.Product true "Product"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /cart/items [delete]
func (s *Server) removeFromCartHandler(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "removeFromCartHandler")
	defer span.End()

	p, err := decodeProduct(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, ok := s.lockCart(w, r)
	if !ok {
		return
	}
	defer l.mu.Unlock()

	if err := s.market.RemoveFromCart(l.cartID, p); err != nil {
		s.writeMarketError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// placeOrderHandler places the session's cart as an order and starts a
// fresh cart for the consumer. A cart is ordered at most once.
// @Summary Place order
// @Produce json
// @Success 201 {object} order.Order
// @Router /cart/order [post]
func (s *Server) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "placeOrderHandler")
	defer span.End()

	sess := sessionFrom(ctx)
	l, ok := s.lockCart(w, r)
	if !ok {
		return
	}
	o, err := s.checkout(ctx, l, sess.Consumer)
	l.mu.Unlock()
	if err != nil {
		if errors.Is(err, errArchive) {
			s.log.Error(ctx, "archive order", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeMarketError(w, r, err)
		return
	}

	next, err := s.startCart(ctx, sess.Consumer)
	if err != nil {
		s.log.Error(ctx, "rotate session", "error", err)
	} else {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			s.log.Warn(ctx, "delete session", "error", err)
		}
		s.setSessionCookie(w, next)
	}

	s.log.Info(ctx, "order placed", "order", o.ID, "consumer", o.Consumer, "units", o.Units())
	writeJSON(w, http.StatusCreated, o)
}

var errArchive = errors.New("archive order")

// checkout places and archives the leased cart, then retires the lease so
// the cart cannot be ordered again. The caller holds l.
func (s *Server) checkout(ctx context.Context, l *cartLease, consumer string) (order.Order, error) {
	lines, err := s.market.PlaceOrder(l.cartID)
	if err != nil {
		return order.Order{}, err
	}
	o := order.New(l.cartID, consumer, lines, s.now())
	if err := s.orders.Create(ctx, o); err != nil {
		return order.Order{}, fmt.Errorf("%w: %w", errArchive, err)
	}
	l.closed = true
	s.dropLease(l)
	return o, nil
}

// listOrdersHandler lists placed orders.
// @Summary List orders
// @Produce json
// @Success 200 {array} order.Order
// @Router /orders [get]
func (s *Server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listOrdersHandler")
	defer span.End()

	orders, err := s.orders.List(ctx)
	if err != nil {
		s.log.Error(ctx, "list orders", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// getOrderHandler retrieves an order by ID.
// @Summary Get order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} order.Order
// @Router /orders/{id} [get]
func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getOrderHandler")
	defer span.End()

	o, err := s.orders.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error(ctx, "get order", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// deleteOrderHandler removes an order from the archive.
// @Summary Delete order
// @Param id path string true "Order ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [delete]
func (s *Server) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "deleteOrderHandler")
	defer span.End()

	id := mux.Vars(r)["id"]
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error(ctx, "delete order", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Info(ctx, "order deleted", "order", id)
	w.WriteHeader(http.StatusNoContent)
}

// writeMarketError maps marketplace misuse faults to client errors.
func (s *Server) writeMarketError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, marketplace.ErrUnknownProducer),
		errors.Is(err, marketplace.ErrUnknownCart),
		errors.Is(err, marketplace.ErrNotInCart):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, product.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error(r.Context(), "marketplace", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
