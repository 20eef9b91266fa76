package redis

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// Blacklist implements ports.Blacklist on a Redis set.
type Blacklist struct {
	client *backend.Client
	key    string
}

// NewBlacklist creates a blacklist stored in the set prefix+"blacklist".
func NewBlacklist(client *backend.Client, prefix string) *Blacklist {
	return &Blacklist{client: client, key: prefix + "blacklist"}
}

func (b *Blacklist) Add(ctx context.Context, id string) error {
	if err := b.client.SAdd(ctx, b.key, id).Err(); err != nil {
		return fmt.Errorf("failed to add to blacklist: %w", err)
	}
	return nil
}

func (b *Blacklist) Remove(ctx context.Context, id string) error {
	if err := b.client.SRem(ctx, b.key, id).Err(); err != nil {
		return fmt.Errorf("failed to remove from blacklist: %w", err)
	}
	return nil
}

func (b *Blacklist) Contains(ctx context.Context, id string) (bool, error) {
	ok, err := b.client.SIsMember(ctx, b.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query blacklist: %w", err)
	}
	return ok, nil
}
