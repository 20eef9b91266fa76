package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/parley/internal/flows"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/bridge"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *memory.Provider) {
	t.Helper()
	graph := flows.MustDemo()
	provider := memory.NewProvider()
	d := bridge.New(runtime.NewEngine(graph), session.NewManager(memory.NewStore()), memory.NewHistory(), provider)
	return NewServer(d, graph, WithVersion("test")), provider
}

func TestServer_SendMessage(t *testing.T) {
	s, provider := newTestServer(t)

	out, err := s.handleSendMessage(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"number":  "5511",
		"message": "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "sended", out)
	require.Len(t, provider.Sent(), 1)
	assert.Equal(t, "Hello", provider.Sent()[0].Message.Text)
}

func TestServer_InboundConversation(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleInbound(ctx, mcp.CallToolRequest{}, map[string]any{"number": "5511", "message": "hi"})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "Type *doc* to get the documentation link", resp.Messages[1].Text)

	resp, err = s.handleInbound(ctx, mcp.CallToolRequest{}, map[string]any{"number": "5511", "message": "doc"})
	require.NoError(t, err)
	assert.Equal(t, "Do you want to register? Reply *yes* to continue", resp.Messages[1].Text)
}

func TestServer_TriggerEvent(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.handleTrigger(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"event":  domain.EventSamples,
		"number": "5511",
		"name":   "Ana",
	})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "Hi Ana, here are some samples", resp.Messages[0].Text)

	_, err = s.handleTrigger(context.Background(), mcp.CallToolRequest{}, map[string]any{"event": "NOPE", "number": "5511"})
	assert.ErrorIs(t, err, domain.ErrUnknownTrigger)
}

func TestServer_Blacklist(t *testing.T) {
	s, provider := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleBlacklist(ctx, mcp.CallToolRequest{}, map[string]any{"number": "5511", "intent": "add"})
	require.NoError(t, err)
	assert.Equal(t, BlacklistResponse{Status: "ok", Number: "5511", Intent: "add"}, resp)

	turn, err := s.handleInbound(ctx, mcp.CallToolRequest{}, map[string]any{"number": "5511", "message": "hi"})
	require.NoError(t, err)
	assert.Empty(t, turn.Messages)
	assert.Empty(t, provider.Sent())

	_, err = s.handleBlacklist(ctx, mcp.CallToolRequest{}, map[string]any{"number": "5511", "intent": "maybe"})
	assert.Error(t, err)
}

func TestServer_LatestHistory(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"number": "5511"}

	res, err := s.handleLatestHistory(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.IsError)

	_, err = s.handleInbound(ctx, mcp.CallToolRequest{}, map[string]any{"number": "5511", "message": "hi"})
	require.NoError(t, err)

	res, err = s.handleLatestHistory(ctx, req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var rec domain.HistoryRecord
	require.NoError(t, json.Unmarshal([]byte(text.Text), &rec))
	assert.Equal(t, "welcome#0", rec.RefSerialize)
}
