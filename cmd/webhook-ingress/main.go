// Command webhook-ingress runs the HTTP surface of spec §4.4: it terminates
// the platform's verification handshake and POST deliveries, normalizes
// them into domain envelopes, and publishes onto the bus.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drblury/whatsapp-eventspine/internal/bus"
	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/webhook"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadWebhookConfig()
	if err != nil {
		logger.Error("load webhook config", err, nil)
		os.Exit(1)
	}

	b, err := bus.New(cfg.Kafka, logger)
	if err != nil {
		logger.Error("build bus", err, nil)
		os.Exit(1)
	}
	defer b.Close()

	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics server listening", logging.Fields{"port": cfg.MetricsPort})
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", err, nil)
		}
	}()

	srv := webhook.NewServer(cfg, b, logger)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("webhook ingress listening", logging.Fields{"addr": httpSrv.Addr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("webhook server error", err, nil)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
