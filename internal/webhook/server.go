package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/drblury/whatsapp-eventspine/internal/bus"
	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/jsoncodec"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/metadata"
)

// Publisher is the narrow slice of the bus the webhook server needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, env envelope.Envelope) error
	Health() bus.BrokerStatus
}

// Server implements the two verbs of spec §4.4 on a single /webhook path.
type Server struct {
	cfg          *config.WebhookConfig
	publisher    Publisher
	logger       logging.ServiceLogger
	router       chi.Router
	maxBodyBytes int64
}

// NewServer builds the chi router for the webhook ingress service.
func NewServer(cfg *config.WebhookConfig, publisher Publisher, logger logging.ServiceLogger) *Server {
	s := &Server{
		cfg:          cfg,
		publisher:    publisher,
		logger:       logger,
		maxBodyBytes: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/webhook", s.handleVerify)
	r.Post("/webhook", s.handleIngest)
	r.Get("/healthz", s.handleHealthz)
	s.router = r
	return s
}

// handleHealthz reports broker reachability for the outer process health
// probe (spec §6.4), doubling as the verification endpoint's liveness
// counterpart.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := s.publisher.Health()

	w.Header().Set("Content-Type", "application/json")
	if !status.Reachable {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = jsoncodec.Encode(w, status)
}

// Handler returns the server's http.Handler for use with http.Server or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleVerify implements the platform's verification handshake (spec §4.4,
// §6.4: the same endpoint doubles as a liveness probe when operators pass
// hub.challenge=healthcheck).
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || token != s.cfg.VerifyToken {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// handleIngest implements POST /webhook (spec §4.4): parse, validate,
// normalize, and publish every derived event in payload order before
// acknowledging, so the platform's "delivered" signal tracks durable
// enqueue rather than mere receipt.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes+1)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if int64(len(body)) > s.maxBodyBytes {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var payload Payload
	if err := jsoncodec.Unmarshal(body, &payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := Validate(payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	events, err := Normalize(payload, metadata.New("processed_by", "webhook-ingress"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	for _, event := range events {
		if err := s.publisher.Publish(ctx, event.Topic, event.Envelope); err != nil {
			// Bus unavailable: surface 5xx so the platform retries the
			// whole delivery (spec §4.4 non-goal: no local queueing).
			s.logf("publish normalized event failed", err, logging.Fields{
				"topic":    event.Topic,
				"event_id": event.Envelope.EventID,
			})
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) logf(msg string, err error, fields logging.Fields) {
	if s.logger == nil {
		return
	}
	s.logger.Error(msg, err, fields)
}
