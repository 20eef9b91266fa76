package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunConversationStoreContract(t, store)
}

func TestMemoryBlacklist_Contract(t *testing.T) {
	ports.RunBlacklistContract(t, memory.NewBlacklist())
}

func TestMemoryHistory_Contract(t *testing.T) {
	tests.RunHistoryStoreContract(t, memory.NewHistory())
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(
		memory.WithTTL(time.Minute),
		memory.WithClock(func() time.Time { return now }),
	)

	conv := domain.NewConversation("123")
	conv.LastActivity = now
	if err := store.Save(ctx, conv); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(ctx, "123"); err != nil {
		t.Fatalf("fresh conversation should load: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Load(ctx, "123"); err != domain.ErrConversationNotFound {
		t.Fatalf("expected expiry, got %v", err)
	}
	ids, _ := store.List(ctx)
	if len(ids) != 0 {
		t.Errorf("expired conversation still listed: %v", ids)
	}
}
