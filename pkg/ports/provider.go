package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// Provider delivers outbound messages to subscribers.
// The raw chat transport lives behind this interface.
type Provider interface {
	Send(ctx context.Context, to string, msg domain.Message) error
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, to string, msg domain.Message) error

// Send calls f(ctx, to, msg).
func (f ProviderFunc) Send(ctx context.Context, to string, msg domain.Message) error {
	return f(ctx, to, msg)
}
