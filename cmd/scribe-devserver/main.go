package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	scribe "github.com/goliatone/go-scribe"
	"github.com/goliatone/go-scribe/devserver"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address, overrides config")
	dsn := flag.String("dsn", "", "SQLite DSN, overrides config")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dsn != "" {
		cfg.DSN = *dsn
	}
	if v := os.Getenv("SCRIBE_SIGNING_KEY"); v != "" {
		cfg.SigningKey = v
	}

	srv, err := devserver.New(context.Background(), cfg, scribe.NewZapLogger(logger))
	if err != nil {
		logger.Fatal("failed to initialize dev server", zap.Error(err))
	}

	go func() {
		if err := srv.Listen(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down dev server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("dev server exited")
}

func loadConfig(path string) (devserver.Config, error) {
	var cfg devserver.Config
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, err
	}
	return cfg, nil
}
