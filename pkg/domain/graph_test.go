package domain

import (
	"context"
	"errors"
	"testing"
)

func say(text string) Step { return Step{Message: Message{Text: text}} }

func TestNewGraph_Validation(t *testing.T) {
	noop := func(ctx context.Context, c *Capture) (Outcome, error) { return Next(), nil }

	tests := []struct {
		name    string
		nodes   []Node
		wantErr error
	}{
		{
			name: "Valid",
			nodes: []Node{
				{ID: "a", Keywords: []string{"hi"}, Steps: []Step{say("hello")}, Branches: []string{"b"}},
				{ID: "b", Events: []string{"REGISTER_FLOW"}, Steps: []Step{say("name?")}},
			},
		},
		{
			name: "Duplicate Keyword Case Insensitive",
			nodes: []Node{
				{ID: "a", Keywords: []string{"Hi"}, Steps: []Step{say("x")}},
				{ID: "b", Keywords: []string{" hi "}, Steps: []Step{say("y")}},
			},
			wantErr: ErrDuplicateTrigger,
		},
		{
			name: "Duplicate Event",
			nodes: []Node{
				{ID: "a", Events: []string{"SAMPLES"}, Steps: []Step{say("x")}},
				{ID: "b", Events: []string{"SAMPLES"}, Steps: []Step{say("y")}},
			},
			wantErr: ErrDuplicateTrigger,
		},
		{
			name: "Unknown Branch",
			nodes: []Node{
				{ID: "a", Keywords: []string{"hi"}, Steps: []Step{say("x")}, Branches: []string{"ghost"}},
			},
			wantErr: ErrUnknownNode,
		},
		{
			name:    "Empty Node",
			nodes:   []Node{{ID: "a", Keywords: []string{"hi"}}},
			wantErr: ErrInvalidNode,
		},
		{
			name: "Continuation Without Capture",
			nodes: []Node{
				{ID: "a", Keywords: []string{"hi"}, Steps: []Step{{Message: Message{Text: "x"}, Continue: noop}}},
			},
			wantErr: ErrInvalidNode,
		},
		{
			name: "Same Node Twice",
			nodes: []Node{
				{ID: "a", Steps: []Step{say("x")}},
				{ID: "a", Steps: []Step{say("y")}},
			},
			wantErr: ErrInvalidNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGraph(tt.nodes...)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewGraph() unexpected error: %v", err)
				}
				if g.Len() != len(tt.nodes) {
					t.Errorf("Len() = %d, want %d", g.Len(), len(tt.nodes))
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewGraph() error = %v, want %v", err, tt.wantErr)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestGraph_Resolve(t *testing.T) {
	g, err := NewGraph(
		Node{ID: "greet", Keywords: []string{"hi", "Hello"}, Steps: []Step{say("hey")}},
		Node{ID: "register", Events: []string{EventRegister}, Steps: []Step{say("name?")}},
	)
	if err != nil {
		t.Fatalf("NewGraph() error: %v", err)
	}

	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"hi", "greet", true},
		{"HELLO", "greet", true},
		{"  hi  ", "greet", true},
		{"hi there", "", false},
		{"h", "", false},
	}
	for _, c := range cases {
		got, ok := g.ResolveKeyword(c.input)
		if got != c.want || ok != c.ok {
			t.Errorf("ResolveKeyword(%q) = (%q, %v), want (%q, %v)", c.input, got, ok, c.want, c.ok)
		}
	}

	if id, ok := g.ResolveEvent(EventRegister); !ok || id != "register" {
		t.Errorf("ResolveEvent(REGISTER_FLOW) = (%q, %v)", id, ok)
	}
	if _, ok := g.ResolveEvent("register_flow"); ok {
		t.Error("events must match exactly")
	}
}

func TestGraph_IsolatedFromInput(t *testing.T) {
	nodes := []Node{{ID: "a", Keywords: []string{"hi"}, Steps: []Step{say("one")}}}
	g, err := NewGraph(nodes...)
	if err != nil {
		t.Fatal(err)
	}
	nodes[0].Steps[0].Message.Text = "mutated"

	n, _ := g.Node("a")
	if n.Steps[0].Message.Text != "one" {
		t.Errorf("graph must not alias caller slices, got %q", n.Steps[0].Message.Text)
	}
}

func TestGraph_Describe(t *testing.T) {
	noop := func(ctx context.Context, c *Capture) (Outcome, error) { return Next(), nil }
	g, err := NewGraph(
		Node{ID: "welcome", Keywords: []string{"hi"}, Steps: []Step{
			say("Hello"),
			{Message: Message{Text: "Name?"}, Capture: true, Continue: noop},
		}, Branches: []string{"samples"}},
		Node{ID: "samples", Events: []string{"SAMPLES"}, Steps: []Step{
			{Message: Message{Text: "Here", Media: "https://i.imgur.com/0HpzsEm.png"}},
		}},
	)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	infos := g.Describe()
	if len(infos) != 2 || infos[0].ID != "welcome" || infos[1].ID != "samples" {
		t.Fatalf("Unexpected nodes: %+v", infos)
	}
	if len(infos[0].Steps) != 2 || infos[0].Steps[0].Capture || !infos[0].Steps[1].Capture {
		t.Errorf("Unexpected steps: %+v", infos[0].Steps)
	}
	if infos[0].Branches[0] != "samples" || infos[0].Keywords[0] != "hi" {
		t.Errorf("Unexpected triggers or branches: %+v", infos[0])
	}
	if infos[1].Steps[0].Media != "https://i.imgur.com/0HpzsEm.png" || infos[1].Events[0] != "SAMPLES" {
		t.Errorf("Unexpected media node: %+v", infos[1])
	}
}
