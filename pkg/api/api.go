// Package api exposes a marketplace over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	"marketplace/pkg/logger"
	"marketplace/pkg/marketplace"
	"marketplace/pkg/order"
	"marketplace/pkg/otel"
	"marketplace/pkg/product"
	"marketplace/pkg/session"
)

const sessionCookie = "session_id"

type (
	sessionKey struct{}
	leaseKey   struct{}
)

// Market is the marketplace served by the API.
type Market = marketplace.Marketplace[product.Product]

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	market     *Market
	orders     order.Repository
	sessions   session.Store
	log        *logger.Logger
	tracer     trace.Tracer
	gatherer   prometheus.Gatherer
	sessionTTL time.Duration
	now        func() time.Time

	leasesMu sync.Mutex
	leases   map[int]*cartLease
}

// Config wires a Server.
type Config struct {
	Market     *Market
	Orders     order.Repository
	Sessions   session.Store
	Log        *logger.Logger
	Tracer     trace.Tracer
	Gatherer   prometheus.Gatherer
	SessionTTL time.Duration
}

// NewServer returns a Server. Nil Log, Tracer and Gatherer fall back to a
// no-op logger, the global tracer and the default Prometheus registry.
func NewServer(cfg Config) *Server {
	s := &Server{
		market:     cfg.Market,
		orders:     cfg.Orders,
		sessions:   cfg.Sessions,
		log:        cfg.Log,
		tracer:     cfg.Tracer,
		gatherer:   cfg.Gatherer,
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
		leases:     make(map[int]*cartLease),
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = time.Hour
	}
	return s
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware)

	r.HandleFunc("/producers", s.registerProducerHandler).Methods(http.MethodPost)
	r.HandleFunc("/producers", s.listProducersHandler).Methods(http.MethodGet)
	r.HandleFunc("/producers/{id}/products", s.publishHandler).Methods(http.MethodPost)
	r.HandleFunc("/producers/{id}/products", s.stockHandler).Methods(http.MethodGet)

	r.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)

	cart := r.PathPrefix("/cart").Subrouter()
	cart.Use(s.authMiddleware)
	cart.HandleFunc("", s.viewCartHandler).Methods(http.MethodGet)
	cart.HandleFunc("/items", s.addToCartHandler).Methods(http.MethodPost)
	cart.HandleFunc("/items", s.removeFromCartHandler).Methods(http.MethodDelete)
	cart.HandleFunc("/order", s.placeOrderHandler).Methods(http.MethodPost)
	cart.HandleFunc("/logout", s.logoutHandler).Methods(http.MethodPost)

	r.HandleFunc("/orders", s.listOrdersHandler).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.getOrderHandler).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.deleteOrderHandler).Methods(http.MethodDelete)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.tracer != nil {
			ctx = otel.InjectTracing(ctx, s.tracer)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authMiddleware ensures a valid session exists and owns an open cart of
// this server, and stores both in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		sess, err := s.sessions.Get(r.Context(), c.Value)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				s.log.Error(r.Context(), "load session", "error", err)
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		l, ok := s.lease(sess)
		if !ok {
			s.log.Warn(r.Context(), "session without open cart", "consumer", sess.Consumer, "cart", sess.CartID)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = context.WithValue(ctx, leaseKey{}, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) session.Session {
	sess, _ := ctx.Value(sessionKey{}).(session.Session)
	return sess
}

func leaseFrom(ctx context.Context) *cartLease {
	l, _ := ctx.Value(leaseKey{}).(*cartLease)
	return l
}

// startCart opens a new cart for consumer and a session owning it.
func (s *Server) startCart(ctx context.Context, consumer string) (session.Session, error) {
	sess, err := s.sessions.Create(ctx, consumer, s.market.NewCart())
	if err != nil {
		return session.Session{}, err
	}
	s.openLease(sess)
	return sess, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  s.now().Add(s.sessionTTL),
		HttpOnly: true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeProduct reads and validates a product body.
func decodeProduct(r *http.Request) (product.Product, error) {
	var p product.Product
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return product.Product{}, err
	}
	return p, p.Validate()
}
