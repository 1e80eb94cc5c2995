package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/nutrivision"
	"github.com/menta2k/nutrivision/internal/config"
	"github.com/menta2k/nutrivision/internal/logging"
	"github.com/menta2k/nutrivision/internal/metrics"
	"github.com/menta2k/nutrivision/internal/server"
)

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	m := metrics.New()
	analyzer, err := nutrivision.NewFromConfig(cfg, log, m)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	detector := analyzer.Detector()
	if !detector.Available(ctx) {
		log.WithField("url", cfg.Model.URL).Warn("Vision model service not reachable yet")
	}

	log.WithFields(logrus.Fields{
		"backend": cfg.Model.Backend,
		"model":   cfg.Model.Name,
		"url":     cfg.Model.URL,
	}).Info("Starting NutriVision API")

	srv := server.New(detector, server.Options{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUpload:      cfg.MaxUploadBytes(),
		Version:        nutrivision.Version,
		Metrics:        m.Handler(),
	}, log)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
