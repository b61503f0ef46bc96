// Command outbound-dispatcher runs the consumer of spec §4.5: it turns each
// ResponseReady into a Graph API call, rate limited and circuit broken, and
// reports the outcome to the Reliability Router.
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
	"github.com/drblury/whatsapp-eventspine/internal/dispatcher"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadDispatcherConfig()
	if err != nil {
		logger.Error("load dispatcher config", err, nil)
		os.Exit(1)
	}

	b, err := bus.New(cfg.Kafka, logger)
	if err != nil {
		logger.Error("build bus", err, nil)
		os.Exit(1)
	}
	defer b.Close()

	metrics := reliability.NewMetrics(nil)
	if err := metrics.Register(); err != nil {
		logger.Error("register reliability metrics", err, nil)
		os.Exit(1)
	}
	router := reliability.NewRouter(b, logger, metrics)

	d := dispatcher.New(cfg, logger)

	sub := bus.DefaultSubscriptionConfig(dispatcher.ConsumerGroup)
	if err := b.Subscribe("outbound-dispatcher", reliability.TopicResponses, sub, router, d.Handle); err != nil {
		logger.Error("subscribe to conversation.responses", err, nil)
		os.Exit(1)
	}

	retrySub := bus.DefaultSubscriptionConfig(dispatcher.ConsumerGroup)
	if err := b.Subscribe("outbound-dispatcher-retry", reliability.TopicResponsesRetry, retrySub, router, d.Handle); err != nil {
		logger.Error("subscribe to conversation.responses.retry", err, nil)
		os.Exit(1)
	}

	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics server listening", logging.Fields{"port": cfg.MetricsPort})
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", err, nil)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("dispatcher stopped with error", err, nil)
		os.Exit(1)
	}
}
