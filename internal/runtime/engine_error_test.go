package runtime_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
)

func TestEngine_ContinuationErrorIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fail := true
	var seen []map[string]any

	b := dsl.New()
	b.Add("survey").
		Keywords("survey").
		Ask("Rate us", func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) {
			seen = append(seen, c.State())
			c.Set("rating", c.Body)
			c.Send("partial")
			if fail {
				return nil, errors.New("upstream down")
			}
			return domain.Next(), nil
		}).
		Say("Thanks")
	engine := runtime.NewEngine(b.MustBuild())

	conv := domain.NewConversation("42")
	conv.State["lang"] = "en"
	conv.Resume = &domain.ResumePoint{Node: "survey", Step: 0, Keyword: "survey"}
	before := conv.Snapshot()

	turn, err := engine.Advance(ctx, conv, domain.Inbound{Body: "5"})
	if turn != nil {
		t.Error("A failed turn must not return effects")
	}
	var engErr *domain.EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("Expected *domain.EngineError, got %T: %v", err, err)
	}
	if engErr.Node != "survey" || engErr.Step != 0 {
		t.Errorf("Unexpected error location: %+v", engErr)
	}
	if !reflect.DeepEqual(conv, before) {
		t.Errorf("Conversation mutated by failed turn:\n got  %+v\n want %+v", conv, before)
	}

	// Re-delivery runs the same step with the same state.
	fail = false
	turn, err = engine.Advance(ctx, conv, domain.Inbound{Body: "5"})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(seen) != 2 || !reflect.DeepEqual(seen[0], seen[1]) {
		t.Errorf("Retry observed a different state: %v", seen)
	}
	assertTexts(t, turn.Effects, "partial", "Thanks")
	if turn.Conversation.State["rating"] != "5" {
		t.Errorf("Expected rating to be committed, got %v", turn.Conversation.State)
	}
}

func TestEngine_ContinuationPanic(t *testing.T) {
	b := dsl.New()
	b.Add("a").Keywords("a").Ask("?", func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) {
		panic("kaboom")
	})
	engine := runtime.NewEngine(b.MustBuild())

	conv := domain.NewConversation("1")
	conv.Resume = &domain.ResumePoint{Node: "a"}

	_, err := engine.Advance(context.Background(), conv, domain.Inbound{Body: "x"})
	var engErr *domain.EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("Expected EngineError, got %v", err)
	}
	if conv.Resume == nil || conv.Resume.Node != "a" {
		t.Error("Resume point must be preserved")
	}
}

func TestEngine_InvalidOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		cont    domain.Continuation
		wantErr error
	}{
		{
			name:    "Nil Outcome",
			cont:    func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) { return nil, nil },
			wantErr: domain.ErrUndefinedOutcome,
		},
		{
			name:    "Complete From Non-Terminal Step",
			cont:    func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) { return domain.Done(), nil },
			wantErr: domain.ErrUndefinedOutcome,
		},
		{
			name:    "Awaiting Is Engine-Only",
			cont:    func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) { return domain.AwaitingCapture{}, nil },
			wantErr: domain.ErrUndefinedOutcome,
		},
		{
			name:    "Continue Default",
			cont:    func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) { return domain.Continue{Next: 0}, nil },
			wantErr: nil,
		},
		{
			name:    "Continue Out Of Range",
			cont:    func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) { return domain.Continue{Next: 9}, nil },
			wantErr: domain.ErrUndefinedOutcome,
		},
		{
			name:    "Jump To Undeclared Branch",
			cont:    func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) { return domain.GoTo("other"), nil },
			wantErr: domain.ErrIllegalJump,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := dsl.New()
			b.Add("a").Keywords("a").Ask("first?", tt.cont).Ask("second?", nil)
			b.Add("other").Keywords("other").Say("elsewhere")
			engine := runtime.NewEngine(b.MustBuild())

			conv := domain.NewConversation("1")
			conv.Resume = &domain.ResumePoint{Node: "a", Step: 0}

			_, err := engine.Advance(context.Background(), conv, domain.Inbound{Body: "x"})
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEngine_AdvanceIdle(t *testing.T) {
	engine := runtime.NewEngine(newDemoGraph(t))
	_, err := engine.Advance(context.Background(), domain.NewConversation("1"), domain.Inbound{Body: "x"})
	if !errors.Is(err, domain.ErrNotAwaiting) {
		t.Fatalf("Expected ErrNotAwaiting, got %v", err)
	}
}

func TestEngine_StaleResumePoint(t *testing.T) {
	engine := runtime.NewEngine(newDemoGraph(t))
	conv := domain.NewConversation("1")
	conv.Resume = &domain.ResumePoint{Node: "register", Step: 7}

	_, err := engine.Advance(context.Background(), conv, domain.Inbound{Body: "x"})
	if !errors.Is(err, domain.ErrUnknownNode) {
		t.Fatalf("Expected ErrUnknownNode, got %v", err)
	}
}

func TestEngine_CanResume(t *testing.T) {
	engine := runtime.NewEngine(newDemoGraph(t))

	tests := []struct {
		name string
		rp   *domain.ResumePoint
		want bool
	}{
		{"Nil", nil, false},
		{"Valid", &domain.ResumePoint{Node: "register", Step: 0}, true},
		{"Unknown Node", &domain.ResumePoint{Node: "gone", Step: 0}, false},
		{"Step Out Of Range", &domain.ResumePoint{Node: "register", Step: 7}, false},
		{"Negative Step", &domain.ResumePoint{Node: "register", Step: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.CanResume(tt.rp); got != tt.want {
				t.Errorf("CanResume() = %v, want %v", got, tt.want)
			}
		})
	}
}
