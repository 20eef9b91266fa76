package yamlflow_test

import (
	"context"
	"testing"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/adapters/yamlflow"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(turn *runtime.Turn) []string {
	out := make([]string, 0, len(turn.Effects))
	for _, e := range turn.Effects {
		out = append(out, e.Message.Text)
	}
	return out
}

func TestLoad_DemoConversation(t *testing.T) {
	g, err := yamlflow.Load("testdata/demo.yaml")
	require.NoError(t, err)

	ctx := context.Background()
	engine := runtime.NewEngine(g)
	conv := domain.NewConversation("123")

	node, ok := engine.ResolveKeyword("Hello")
	require.True(t, ok)

	turn, err := engine.Start(ctx, conv, node, "hello", domain.Inbound{Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello, welcome!", "Type *doc* to get the documentation link"}, texts(turn))

	turn, err = engine.Advance(ctx, turn.Conversation, domain.Inbound{Body: "nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Please type *doc*", "Type *doc* to get the documentation link"}, texts(turn))

	turn, err = engine.Advance(ctx, turn.Conversation, domain.Inbound{Body: "DOC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Docs: https://example.com/docs", "Do you want to continue? *yes*"}, texts(turn))

	turn, err = engine.Advance(ctx, turn.Conversation, domain.Inbound{Body: "Yes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"What is your name?"}, texts(turn))

	turn, err = engine.Advance(ctx, turn.Conversation, domain.Inbound{Body: " Ana "})
	require.NoError(t, err)
	assert.Equal(t, []string{"What is your age?"}, texts(turn))

	turn, err = engine.Advance(ctx, turn.Conversation, domain.Inbound{Body: "30"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Got it, Ana", "Ana, thanks for your information!: Your age: 30"}, texts(turn))
	assert.True(t, turn.Conversation.Idle())
}

func TestLoad_Otherwise(t *testing.T) {
	g, err := yamlflow.Load("testdata/demo.yaml")
	require.NoError(t, err)

	ctx := context.Background()
	engine := runtime.NewEngine(g)
	conv := domain.NewConversation("123")
	conv.Resume = &domain.ResumePoint{Node: "welcome", Step: 3}

	turn, err := engine.Advance(ctx, conv, domain.Inbound{Body: "no"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bye!"}, texts(turn))
	assert.IsType(t, domain.Complete{}, turn.Outcome)
}

func TestLoad_Directory(t *testing.T) {
	g, err := yamlflow.Load("testdata/split")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())

	welcome, ok := g.Node("welcome")
	require.True(t, ok)
	assert.True(t, welcome.HasBranch("samples"))

	node, ok := g.ResolveEvent(domain.EventSamples)
	require.True(t, ok)
	assert.Equal(t, "samples", node)

	ctx := context.Background()
	engine := runtime.NewEngine(g)
	turn, err := engine.Start(ctx, domain.NewConversation("1"), "welcome", "hi", domain.Inbound{Body: "hi"})
	require.NoError(t, err)

	turn, err = engine.Advance(ctx, turn.Conversation, domain.Inbound{Body: "later"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Please pick *samples* or *bye*", "Pick *samples* or *bye*"}, texts(turn))

	turn, err = engine.Advance(ctx, turn.Conversation, domain.Inbound{Body: "samples"})
	require.NoError(t, err)
	require.Len(t, turn.Effects, 1)
	assert.Equal(t, "https://example.com/a.png", turn.Effects[0].Message.Media)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Invalid YAML", "nodes: [\n"},
		{"Unknown Field", "nodes:\n  - id: a\n    colour: red\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := yamlflow.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCompile_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			"Duplicate Keyword",
			"nodes:\n  - id: a\n    keywords: [hi]\n    steps:\n      - text: x\n  - id: b\n    keywords: [HI]\n    steps:\n      - text: y\n",
			domain.ErrDuplicateTrigger,
		},
		{
			"Duplicate Node",
			"nodes:\n  - id: a\n  - id: a\n",
			domain.ErrInvalidNode,
		},
		{
			"Missing Id",
			"nodes:\n  - keywords: [hi]\n",
			domain.ErrInvalidNode,
		},
		{
			"Unknown Branch Target",
			"nodes:\n  - id: a\n    steps:\n      - text: q\n        branch:\n          x: nowhere\n",
			domain.ErrUnknownNode,
		},
		{
			"Otherwise Not Last",
			"nodes:\n  - id: a\n    steps:\n      - text: q\n        branch:\n          x: a\n        otherwise: bye\n      - text: end\n",
			domain.ErrInvalidNode,
		},
		{
			"Fallback Without Capture",
			"nodes:\n  - id: a\n    steps:\n      - text: q\n        fallback: again\n",
			domain.ErrInvalidNode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := yamlflow.Parse([]byte(tt.yaml))
			require.NoError(t, err)

			_, err = yamlflow.Compile(doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var cfgErr *domain.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := yamlflow.Load("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
