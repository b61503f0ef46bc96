// Command topic-bootstrap is the one-shot provisioner of spec §4.6: it
// polls broker readiness, then creates every canonical topic that is
// absent, leaving any already-present topic untouched.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/drblury/whatsapp-eventspine/internal/bootstrap"
	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadBootstrapConfig()
	if err != nil {
		logger.Error("load bootstrap config", err, nil)
		os.Exit(1)
	}

	p := bootstrap.New(cfg, logger)
	if err := p.Run(ctx); err != nil {
		logger.Error("bootstrap failed", err, nil)
		os.Exit(1)
	}

	logger.Info("topics provisioned", nil)
}
