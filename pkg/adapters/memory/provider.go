package memory

import (
	"context"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// Provider records outbound messages instead of delivering them.
type Provider struct {
	mu   sync.Mutex
	sent []domain.Effect
}

// NewProvider creates a recording provider.
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Send(ctx context.Context, to string, msg domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, domain.Effect{To: to, Message: msg})
	return nil
}

// Sent returns a copy of every message recorded so far.
func (p *Provider) Sent() []domain.Effect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Effect(nil), p.sent...)
}

// Reset clears the recorded messages.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}
