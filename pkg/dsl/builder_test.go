package dsl

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	// 1. Build the graph using DSL
	b := New()

	b.Add("welcome").
		Keywords("hi").
		Say("Hello, DSL!").
		Ask("Do you want to register?", func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) {
			return domain.GoTo("register"), nil
		}).
		Branch("register")

	b.Add("register").
		Events(domain.EventRegister).
		Ask("What is your name?", SaveTo("name")).
		Say("Nice to meet you, {{name}}!")

	// 2. Compile
	graph, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// 3. Verify nodes keep registration order
	nodes := graph.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].ID != "welcome" || nodes[1].ID != "register" {
		t.Errorf("Unexpected order: %s, %s", nodes[0].ID, nodes[1].ID)
	}

	welcome, _ := graph.Node("welcome")
	if len(welcome.Steps) != 2 {
		t.Fatalf("Expected 2 steps in welcome, got %d", len(welcome.Steps))
	}
	if welcome.Steps[0].Capture {
		t.Error("Say step must not capture")
	}
	if !welcome.Steps[1].Capture || welcome.Steps[1].Continue == nil {
		t.Error("Ask step must capture with a continuation")
	}
	if !welcome.HasBranch("register") {
		t.Error("Expected register branch")
	}

	if id, ok := graph.ResolveEvent(domain.EventRegister); !ok || id != "register" {
		t.Errorf("Expected REGISTER_FLOW to resolve to register, got %q", id)
	}
}

func TestBuilder_DuplicateTrigger(t *testing.T) {
	b := New()
	b.Add("a").Keywords("hi").Say("one")
	b.Add("b").Keywords("HI").Say("two")

	_, err := b.Build()
	if !errors.Is(err, domain.ErrDuplicateTrigger) {
		t.Fatalf("Expected ErrDuplicateTrigger, got %v", err)
	}
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New()
	b.Add("a").Keywords("hi").Say("one")
	b.Add("a").Say("two")

	graph, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	n, _ := graph.Node("a")
	if len(n.Steps) != 2 {
		t.Errorf("Expected steps to accumulate, got %d", len(n.Steps))
	}
}

func TestContinuations(t *testing.T) {
	ctx := context.Background()

	c := domain.NewCapture("1", domain.Inbound{Body: "  Ada "}, nil)
	out, err := SaveTo("name")(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(domain.Continue); !ok {
		t.Errorf("SaveTo should continue, got %v", out)
	}
	if c.GetString("name") != "Ada" {
		t.Errorf("Expected trimmed 'Ada', got %q", c.GetString("name"))
	}

	expect := Expect("please type doc", "doc")
	out, _ = expect(ctx, domain.NewCapture("1", domain.Inbound{Body: "DOC"}, nil))
	if _, ok := out.(domain.Continue); !ok {
		t.Errorf("Expect should accept case-insensitively, got %v", out)
	}
	out, _ = expect(ctx, domain.NewCapture("1", domain.Inbound{Body: "nope"}, nil))
	fb, ok := out.(domain.Fallback)
	if !ok || fb.Message != "please type doc" {
		t.Errorf("Expect should fall back with corrective message, got %v", out)
	}
}
