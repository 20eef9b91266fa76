package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// StreamManager fans outbound messages out to SSE subscribers, keyed by
// subscriber number.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates a StreamManager. A nil logger discards output.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for number. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(number string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[number]; !ok {
		sm.subscribers[number] = make(map[chan<- string]struct{})
	}
	sm.subscribers[number][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[number]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, number)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of number. Slow subscribers miss
// messages instead of blocking the sender.
func (sm *StreamManager) Broadcast(number string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[number] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "number", number)
		}
	}
}

// StreamProvider wraps a Provider and publishes every delivered message on
// a StreamManager, so web clients can follow a conversation over SSE.
type StreamProvider struct {
	Next    ports.Provider
	Streams *StreamManager
}

// Send delivers through Next and broadcasts the message when delivery succeeds.
func (p *StreamProvider) Send(ctx context.Context, to string, msg domain.Message) error {
	if p.Next != nil {
		if err := p.Next.Send(ctx, to, msg); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(EffectResponse{To: to, Text: msg.Text, Media: msg.Media})
	if err != nil {
		return fmt.Errorf("failed to encode stream event: %w", err)
	}
	p.Streams.Broadcast(to, string(payload))
	return nil
}

// SubscribeEvents handles GET /v1/events?number=..., an SSE stream of the
// messages delivered to that number.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	if number == "" {
		http.Error(w, "Missing number", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(number)
	defer cancel()
	s.logger.Info("SSE: Subscribing to conversation", "number", number)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "number", number)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
