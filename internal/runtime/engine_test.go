package runtime_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
)

// newDemoGraph builds the welcome -> register flow used across the engine tests.
func newDemoGraph(t *testing.T) *domain.Graph {
	t.Helper()
	b := dsl.New()

	b.Add("welcome").
		Keywords("hi", "hello").
		Say("Hello, welcome!").
		Ask("Type *doc* to get the documentation link", dsl.Expect("Please type *doc*", "doc")).
		Say("Docs: https://example.com/docs").
		Ask("Do you want to continue? *yes*", func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) {
			if strings.EqualFold(strings.TrimSpace(c.Body), "yes") {
				return domain.GoTo("register"), nil
			}
			c.Send("Bye!")
			return domain.Done(), nil
		}).
		Branch("register")

	b.Add("register").
		Events(domain.EventRegister).
		Ask("What is your name?", dsl.SaveTo("name")).
		Ask("What is your age?", dsl.SaveTo("age")).
		Say("{{name}}, thanks for your information!: Your age: {{age}}")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return g
}

func texts(effects []domain.Effect) []string {
	out := make([]string, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Message.Text)
	}
	return out
}

func assertTexts(t *testing.T, got []domain.Effect, want ...string) {
	t.Helper()
	g := texts(got)
	if len(g) != len(want) {
		t.Fatalf("Expected %d messages %q, got %d: %q", len(want), want, len(g), g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], g[i])
		}
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	engine := runtime.NewEngine(newDemoGraph(t))
	conv := domain.NewConversation("123")

	nodeID, ok := engine.ResolveKeyword("HI")
	if !ok || nodeID != "welcome" {
		t.Fatalf("ResolveKeyword(HI) = %q, %v", nodeID, ok)
	}

	// 1. hi -> greeting + link prompt
	turn, err := engine.Start(ctx, conv, nodeID, "hi", domain.Inbound{Body: "HI"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	assertTexts(t, turn.Effects, "Hello, welcome!", "Type *doc* to get the documentation link")
	if _, ok := turn.Outcome.(domain.AwaitingCapture); !ok {
		t.Fatalf("Expected AwaitingCapture, got %v", turn.Outcome)
	}
	if !conv.Idle() {
		t.Fatal("Start must not mutate the input conversation")
	}
	conv = turn.Conversation

	// 2. doc -> link + continue prompt
	turn, err = engine.Advance(ctx, conv, domain.Inbound{Body: "doc"})
	if err != nil {
		t.Fatalf("Advance(doc) failed: %v", err)
	}
	assertTexts(t, turn.Effects, "Docs: https://example.com/docs", "Do you want to continue? *yes*")
	conv = turn.Conversation

	// 3. yes -> jump into register within the same turn
	turn, err = engine.Advance(ctx, conv, domain.Inbound{Body: "yes"})
	if err != nil {
		t.Fatalf("Advance(yes) failed: %v", err)
	}
	assertTexts(t, turn.Effects, "What is your name?")
	if conv = turn.Conversation; conv.Resume.Node != "register" || conv.Resume.Step != 0 {
		t.Fatalf("Expected resume at register#0, got %+v", conv.Resume)
	}
	var jumped bool
	for _, o := range turn.Trace {
		if j, ok := o.(domain.Jump); ok && j.Node == "register" {
			jumped = true
		}
	}
	if !jumped {
		t.Errorf("Expected a Jump in the trace, got %v", turn.Trace)
	}

	// 4. Ada -> age prompt
	turn, err = engine.Advance(ctx, conv, domain.Inbound{Body: "Ada"})
	if err != nil {
		t.Fatalf("Advance(Ada) failed: %v", err)
	}
	assertTexts(t, turn.Effects, "What is your age?")
	conv = turn.Conversation
	if conv.State["name"] != "Ada" {
		t.Errorf("Expected name=Ada, got %v", conv.State["name"])
	}

	// 5. 36 -> final message, idle
	turn, err = engine.Advance(ctx, conv, domain.Inbound{Body: "36"})
	if err != nil {
		t.Fatalf("Advance(36) failed: %v", err)
	}
	assertTexts(t, turn.Effects, "Ada, thanks for your information!: Your age: 36")
	if _, ok := turn.Outcome.(domain.Complete); !ok {
		t.Errorf("Expected Complete, got %v", turn.Outcome)
	}
	conv = turn.Conversation
	if !conv.Idle() || conv.State["age"] != "36" {
		t.Errorf("Expected idle conversation with age=36, got %+v", conv)
	}

	if len(turn.Records) != 1 {
		t.Fatalf("Expected one history record, got %d", len(turn.Records))
	}
	rec := turn.Records[0]
	if rec.Answer != "36" || rec.Ref != "register" || rec.RefSerialize != "register#1" || rec.Keyword != "hi" || rec.Phone != "123" {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestEngine_EventStart(t *testing.T) {
	engine := runtime.NewEngine(newDemoGraph(t))
	nodeID, ok := engine.ResolveEvent(domain.EventRegister)
	if !ok {
		t.Fatal("REGISTER_FLOW not registered")
	}

	turn, err := engine.Start(context.Background(), domain.NewConversation("123"), nodeID, domain.EventRegister, domain.Inbound{})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, turn.Effects, "What is your name?")
	if turn.Conversation.Resume.Keyword != domain.EventRegister {
		t.Errorf("Expected keyword to be the event, got %q", turn.Conversation.Resume.Keyword)
	}
}

func TestEngine_StartUnknownNode(t *testing.T) {
	engine := runtime.NewEngine(newDemoGraph(t))
	_, err := engine.Start(context.Background(), domain.NewConversation("1"), "ghost", "", domain.Inbound{})
	if err == nil {
		t.Fatal("Expected error for unknown node")
	}
}

func TestEngine_CompleteWithoutJump(t *testing.T) {
	ctx := context.Background()
	engine := runtime.NewEngine(newDemoGraph(t))

	conv := domain.NewConversation("1")
	conv.Resume = &domain.ResumePoint{Node: "welcome", Step: 3, Keyword: "hi"}

	turn, err := engine.Advance(ctx, conv, domain.Inbound{Body: "no"})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, turn.Effects, "Bye!")
	if !turn.Conversation.Idle() {
		t.Error("Expected conversation to be idle")
	}
}
