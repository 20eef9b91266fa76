package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource describing the loaded graph.
const GraphURI = "parley://graph"

// Dispatcher is the part of bridge.Dispatcher exposed as MCP tools.
type Dispatcher interface {
	HandleInbound(ctx context.Context, id string, in domain.Inbound) ([]domain.Effect, error)
	HandleExternalTrigger(ctx context.Context, event, id string, payload map[string]any) ([]domain.Effect, error)
	Send(ctx context.Context, to string, msg domain.Message) error
	Latest(ctx context.Context, id string) (*domain.HistoryRecord, error)
	AddToBlacklist(ctx context.Context, id string) error
	RemoveFromBlacklist(ctx context.Context, id string) error
}

// TurnResponse is the structured result of the conversational tools.
type TurnResponse struct {
	Number   string    `json:"number" jsonschema_description:"Subscriber the turn belongs to"`
	Messages []Message `json:"messages" jsonschema_description:"Messages delivered during the turn, in order"`
}

// Message is one delivered message.
type Message struct {
	Text  string `json:"text,omitempty"`
	Media string `json:"media,omitempty"`
}

// BlacklistResponse mirrors the HTTP blacklist response.
type BlacklistResponse struct {
	Status string `json:"status"`
	Number string `json:"number"`
	Intent string `json:"intent"`
}

// Server exposes a Dispatcher as an MCP server.
type Server struct {
	dispatcher Dispatcher
	graph      *domain.Graph
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	version string
	logger  *slog.Logger
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(c *serverConfig) {
		c.version = v
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serverConfig) {
		c.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(d Dispatcher, graph *domain.Graph, opts ...Option) *Server {
	cfg := serverConfig{version: "dev", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		dispatcher: d,
		graph:      graph,
		mcpServer:  server.NewMCPServer("parley-mcp", cfg.version),
		logger:     cfg.logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a message directly to a subscriber, bypassing the conversation graph."),
		mcp.WithString("number", mcp.Required(), mcp.Description("Subscriber number")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
		mcp.WithString("url_media", mcp.Description("Optional media URL")),
	), mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("inbound_message",
		mcp.WithDescription("Deliver a message as if the subscriber had sent it and return the replies."),
		mcp.WithString("number", mcp.Required(), mcp.Description("Subscriber number")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleInbound))

	s.mcpServer.AddTool(mcp.NewTool("trigger_event",
		mcp.WithDescription("Start the node registered for an event (e.g. REGISTER_FLOW, SAMPLES) for a subscriber."),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name")),
		mcp.WithString("number", mcp.Required(), mcp.Description("Subscriber number")),
		mcp.WithString("name", mcp.Description("Optional name seeded into the conversation state")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleTrigger))

	s.mcpServer.AddTool(mcp.NewTool("blacklist",
		mcp.WithDescription("Add or remove a subscriber from the blacklist."),
		mcp.WithString("number", mcp.Required(), mcp.Description("Subscriber number")),
		mcp.WithString("intent", mcp.Required(), mcp.Description("add or remove"), mcp.Enum("add", "remove")),
		mcp.WithOutputSchema[BlacklistResponse](),
	), mcp.NewStructuredToolHandler(s.handleBlacklist))

	s.mcpServer.AddTool(mcp.NewTool("latest_history",
		mcp.WithDescription("Get the most recent history record of a subscriber."),
		mcp.WithString("number", mcp.Required(), mcp.Description("Subscriber number")),
	), s.handleLatestHistory)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the full graph definition for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.graph.Describe())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode graph: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleSendMessage(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (string, error) {
	number, _ := args["number"].(string)
	text, _ := args["message"].(string)
	media, _ := args["url_media"].(string)

	if err := s.dispatcher.Send(ctx, number, domain.Message{Text: text, Media: media}); err != nil {
		return "", fmt.Errorf("send failed: %w", err)
	}
	return "sended", nil
}

func (s *Server) handleInbound(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	number, _ := args["number"].(string)
	text, _ := args["message"].(string)

	effects, err := s.dispatcher.HandleInbound(ctx, number, domain.Inbound{Body: text})
	if err != nil {
		s.logger.Warn("MCP inbound rejected", "number", number, "err", err)
		return TurnResponse{}, fmt.Errorf("inbound failed: %w", err)
	}
	return turnResponse(number, effects), nil
}

func (s *Server) handleTrigger(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	event, _ := args["event"].(string)
	number, _ := args["number"].(string)

	var payload map[string]any
	if name, _ := args["name"].(string); name != "" {
		payload = map[string]any{"name": name}
	}

	effects, err := s.dispatcher.HandleExternalTrigger(ctx, event, number, payload)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("trigger failed: %w", err)
	}
	return turnResponse(number, effects), nil
}

func (s *Server) handleBlacklist(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (BlacklistResponse, error) {
	number, _ := args["number"].(string)
	intent, _ := args["intent"].(string)

	var err error
	switch intent {
	case "add":
		err = s.dispatcher.AddToBlacklist(ctx, number)
	case "remove":
		err = s.dispatcher.RemoveFromBlacklist(ctx, number)
	default:
		return BlacklistResponse{}, fmt.Errorf("invalid intent %q: expected add or remove", intent)
	}
	if err != nil {
		return BlacklistResponse{}, fmt.Errorf("blacklist failed: %w", err)
	}
	return BlacklistResponse{Status: "ok", Number: number, Intent: intent}, nil
}

func (s *Server) handleLatestHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, _ := request.GetArguments()["number"].(string)

	rec, err := s.dispatcher.Latest(ctx, number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history lookup failed: %v", err)), nil
	}
	if rec == nil {
		return mcp.NewToolResultText("null"), nil
	}
	jsonBytes, err := json.Marshal(rec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode record: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Current Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.graph.Describe())
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func turnResponse(number string, effects []domain.Effect) TurnResponse {
	resp := TurnResponse{Number: number, Messages: make([]Message, 0, len(effects))}
	for _, e := range effects {
		resp.Messages = append(resp.Messages, Message{Text: e.Message.Text, Media: e.Message.Media})
	}
	return resp
}
