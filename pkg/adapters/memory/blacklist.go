package memory

import (
	"context"
	"sync"
)

// Blacklist implements ports.Blacklist with a guarded set.
type Blacklist struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewBlacklist creates an empty blacklist, optionally seeded with ids.
func NewBlacklist(ids ...string) *Blacklist {
	b := &Blacklist{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		b.ids[id] = struct{}{}
	}
	return b
}

func (b *Blacklist) Add(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids[id] = struct{}{}
	return nil
}

func (b *Blacklist) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ids, id)
	return nil
}

func (b *Blacklist) Contains(ctx context.Context, id string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.ids[id]
	return ok, nil
}
