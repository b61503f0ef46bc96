// Command test-harness runs the oracle of spec §4.7: in "consume" mode it
// subscribes to every conversation topic from earliest and prints each
// decoded envelope; in "produce" mode it injects one synthetic
// MessageReceived for a deterministic end-to-end run.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/drblury/whatsapp-eventspine/internal/bus"
	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/harness"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadHarnessConfig()
	if err != nil {
		logger.Error("load harness config", err, nil)
		os.Exit(1)
	}

	b, err := bus.New(cfg.Kafka, logger)
	if err != nil {
		logger.Error("build bus", err, nil)
		os.Exit(1)
	}
	defer b.Close()

	switch cfg.Mode {
	case "produce":
		producer := harness.NewProducer(b)
		eventID, err := producer.EmitText(ctx, harness.SyntheticMessage{FromPhone: cfg.FromPhone, Body: cfg.Body})
		if err != nil {
			logger.Error("emit synthetic message", err, nil)
			os.Exit(1)
		}
		logger.Info("synthetic message emitted", logging.Fields{"event_id": eventID, "from_phone": cfg.FromPhone})

	default: // "consume"
		consumer := harness.NewConsumer(b, logger, nil)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("harness consumer stopped with error", err, nil)
			os.Exit(1)
		}
	}
}
