package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/domain"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	var entered, left, captured, fallbacks []string

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			left = append(left, e.NodeID)
		},
		OnCapture: func(ctx context.Context, e *domain.NodeEvent) {
			captured = append(captured, domain.SerializeRef(e.NodeID, e.Step))
		},
		OnFallback: func(ctx context.Context, e *domain.NodeEvent) {
			fallbacks = append(fallbacks, e.NodeID)
		},
	}
	engine := runtime.NewEngine(newDemoGraph(t), runtime.WithLifecycleHooks(hooks))
	ctx := context.Background()

	turn, err := engine.Start(ctx, domain.NewConversation("1"), "welcome", "hi", domain.Inbound{Body: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	for _, body := range []string{"nope", "doc", "yes", "Ada", "36"} {
		turn, err = engine.Advance(ctx, turn.Conversation, domain.Inbound{Body: body})
		if err != nil {
			t.Fatalf("Advance(%s) failed: %v", body, err)
		}
	}

	assertList(t, "entered", entered, "welcome", "register")
	assertList(t, "left", left, "welcome", "register")
	assertList(t, "captured", captured, "welcome#1", "welcome#3", "register#0", "register#1")
	assertList(t, "fallbacks", fallbacks, "welcome")
}

func assertList(t *testing.T, name string, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", name, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d]: expected %q, got %q", name, i, want[i], got[i])
		}
	}
}
