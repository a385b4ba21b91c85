package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/pkg/logger"
	"marketplace/pkg/marketplace"
	"marketplace/pkg/product"
	"marketplace/pkg/sim"
)

func main() {
	scenarioPath := flag.String("scenario", "scenarios/basic.yaml", "scenario file")
	timeout := flag.Duration("timeout", time.Minute, "abort the run after this long")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logger.New(os.Stderr, logger.ParseLevel(*level), "marketplace-sim", nil)
	defer log.Sync()

	if err := run(*scenarioPath, *timeout, log); err != nil {
		log.Error(context.Background(), "simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(path string, timeout time.Duration, log *logger.Logger) error {
	s, err := sim.LoadScenario(path)
	if err != nil {
		return err
	}
	producers, consumers, err := s.Build()
	if err != nil {
		return err
	}
	m, err := marketplace.New[product.Product](s.QueueSize)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info(ctx, "simulation started", "scenario", path, "producers", len(producers), "consumers", len(consumers))
	purchases, err := sim.Run(ctx, log, m, producers, consumers)
	for _, p := range purchases {
		fmt.Println(p)
	}
	if err != nil {
		return err
	}
	log.Info(ctx, "simulation finished", "purchases", len(purchases))
	return nil
}
