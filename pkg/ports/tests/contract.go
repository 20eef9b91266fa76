// Package tests holds contract suites shared by HistoryStore adapters.
package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// RunHistoryStoreContract verifies that an adapter complies with ports.HistoryStore.
// The store must be empty for the phones used here.
func RunHistoryStoreContract(t *testing.T, store ports.HistoryStore) {
	t.Helper()
	ctx := context.Background()
	phone := fmt.Sprintf("contract-%d", time.Now().UnixNano())

	t.Run("LatestFor_Empty", func(t *testing.T) {
		rec, err := store.LatestFor(ctx, phone)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec != nil {
			t.Fatalf("expected no record, got %+v", rec)
		}
	})

	t.Run("Append_RoundTrip", func(t *testing.T) {
		first := &domain.HistoryRecord{
			Ref:          "welcome",
			Keyword:      "hi",
			Answer:       "Hello!",
			RefSerialize: domain.SerializeRef("welcome", 0),
			Phone:        phone,
			Options:      map[string]any{"capture": false},
		}
		if err := store.Append(ctx, first); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if first.ID == 0 {
			t.Error("append must assign a surrogate id")
		}

		second := &domain.HistoryRecord{
			Ref:          "register",
			Keyword:      domain.EventRegister,
			Answer:       "36",
			RefSerialize: domain.SerializeRef("register", 1),
			Phone:        phone,
			Options: map[string]any{
				"capture": true,
				"nested":  map[string]any{"list": []any{"a", float64(2)}, "ok": true},
				"ratio":   0.5,
			},
		}
		if err := store.Append(ctx, second); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if second.ID <= first.ID {
			t.Errorf("ids must grow: first=%d second=%d", first.ID, second.ID)
		}

		got, err := store.LatestFor(ctx, phone)
		if err != nil {
			t.Fatalf("latest failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected a record")
		}
		if got.ID != second.ID || got.Ref != second.Ref || got.Keyword != second.Keyword ||
			got.Answer != second.Answer || got.RefSerialize != second.RefSerialize || got.Phone != phone {
			t.Errorf("record mismatch:\n got  %+v\n want %+v", got, second)
		}
		nested, ok := got.Options["nested"].(map[string]any)
		if !ok {
			t.Fatalf("options.nested lost its structure: %#v", got.Options["nested"])
		}
		list, _ := nested["list"].([]any)
		if len(list) != 2 || list[0] != "a" || list[1] != float64(2) || nested["ok"] != true {
			t.Errorf("options.nested mismatch: %#v", nested)
		}
		if got.Options["ratio"] != 0.5 || got.Options["capture"] != true {
			t.Errorf("options mismatch: %#v", got.Options)
		}
		if got.CreatedAt.IsZero() {
			t.Error("created_at must be populated")
		}
	})

	t.Run("LatestFor_IsPerPhone", func(t *testing.T) {
		other := phone + "-other"
		if err := store.Append(ctx, &domain.HistoryRecord{Ref: "x", Phone: other}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		got, err := store.LatestFor(ctx, phone)
		if err != nil {
			t.Fatalf("latest failed: %v", err)
		}
		if got == nil || got.Ref != "register" {
			t.Errorf("latest for %s leaked another phone's record: %+v", phone, got)
		}
	})
}
