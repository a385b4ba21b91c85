package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	_ "marketplace/docs"
	"marketplace/pkg/api"
	"marketplace/pkg/config"
	"marketplace/pkg/logger"
	"marketplace/pkg/marketplace"
	"marketplace/pkg/metrics"
	"marketplace/pkg/order"
	"marketplace/pkg/order/memory"
	pg "marketplace/pkg/order/postgres"
	"marketplace/pkg/otel"
	"marketplace/pkg/product"
	"marketplace/pkg/session"
)

// @title Marketplace API
// @version 1.0
// @description Producers publish into bounded queues; consumers reserve units into carts and place orders.
// @host localhost:8443
// @BasePath /
func main() {
	configFile := flag.String("config", "", "optional config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.New(os.Stderr, logger.LevelError, "marketplace", nil).Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), "marketplace", otel.GetTraceID)
	defer log.Sync()
	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdown, err := otel.InitTracing(log, otel.Config{ServiceName: "marketplace", Host: cfg.OTelHost, Probability: cfg.OTelProbability})
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	collector, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	market, err := marketplace.New[product.Product](cfg.QueueSize, marketplace.WithObserver(collector))
	if err != nil {
		return err
	}

	orders, closeOrders, err := openOrders(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeOrders()

	sessions, closeSessions, err := openSessions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	server := api.NewServer(api.Config{
		Market:     market,
		Orders:     orders,
		Sessions:   sessions,
		Log:        log,
		Tracer:     tp.Tracer("marketplace"),
		SessionTTL: cfg.SessionTTL,
	})
	go server.SweepEvery(ctx, cfg.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.HTTPAddr, "tls", cfg.TLS(), "queue_size", cfg.QueueSize)
		if cfg.TLS() {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openOrders(ctx context.Context, cfg config.Config, log *logger.Logger) (order.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info(ctx, "order archive in memory")
		return memory.New(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	repo := pg.New(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info(ctx, "order archive in postgres")
	return repo, func() { db.Close() }, nil
}

func openSessions(ctx context.Context, cfg config.Config, log *logger.Logger) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info(ctx, "sessions in memory")
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Info(ctx, "sessions in redis", "addr", cfg.RedisAddr)
	return session.NewRedisStore(client, cfg.SessionTTL), func() { client.Close() }, nil
}
