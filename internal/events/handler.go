package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arabicbase/arabicbase/internal/logger"
)

// UserResolver extracts the authenticated user from a request.
type UserResolver func(r *http.Request) (string, bool)

// Handler streams a user's events as Server-Sent Events.
type Handler struct {
	broker  *Broker
	user    UserResolver
	logger  *slog.Logger
	timeout time.Duration
}

// NewHandler creates a stream handler. Requests that user rejects get 401.
func NewHandler(broker *Broker, user UserResolver, log *slog.Logger) *Handler {
	return &Handler{
		broker:  broker,
		user:    user,
		logger:  logger.Component(log, "events"),
		timeout: 60 * time.Second,
	}
}

// ServeHTTP handles one stream until the client disconnects or the broker
// shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := h.user(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", logger.Err(err))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sub, err := h.broker.Subscribe(userID)
	if err != nil {
		h.logger.Error("failed to subscribe", logger.Err(err))
		http.Error(w, "failed to establish stream", http.StatusInternalServerError)
		return
	}
	defer h.broker.Unsubscribe(sub.ID)

	log := h.logger.With(slog.String("subscriber_id", sub.ID), slog.String("user_id", userID))

	if err := h.send(w, rc, "connected", map[string]string{"subscriber_id": sub.ID}); err != nil {
		log.Warn("failed to send connected event", logger.Err(err))
		return
	}

	ctx := r.Context()
	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			if err := h.send(w, rc, string(event.Type), event); err != nil {
				log.Info("client disconnected during send")
				return
			}
		case <-sub.Done:
			log.Info("stream closed by broker")
			return
		case <-ctx.Done():
			log.Debug("client disconnected")
			return
		}
	}
}

func (h *Handler) send(w http.ResponseWriter, rc *http.ResponseController, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	if err := rc.SetWriteDeadline(time.Now().Add(h.timeout)); err != nil {
		h.logger.Debug("failed to set write deadline", logger.Err(err))
	}
	return nil
}
