// Package mcp exposes a running world as Model Context Protocol tools so an external
// client can observe, tick and talk to agents.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"grapevine/internal/debug"
	"grapevine/internal/grapevine"
	"grapevine/internal/observability"
	"grapevine/internal/world"
)

const (
	ServerName    = "grapevine"
	ServerVersion = "v1.0.0"
)

type ObserveArgs struct {
	Agent string `json:"agent"`
	Text  string `json:"text"`
}

type QueryArgs struct {
	Agent string `json:"agent"`
	Query string `json:"query"`
	K     int    `json:"k"`
}

type TickArgs struct {
	Count int `json:"count"`
}

type GraphArgs struct {
	Around string  `json:"around,omitempty"`
	By     string  `json:"by,omitempty"`
	Thresh float64 `json:"thresh,omitempty"`
}

type TalkArgs struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Agent          string `json:"agent,omitempty"`
	Line           string `json:"line,omitempty"`
	End            bool   `json:"end,omitempty"`
}

type ReflectArgs struct {
	Agent string `json:"agent"`
}

// TalkReply is what the talk tool returns as JSON.
type TalkReply struct {
	ConversationID string   `json:"conversation_id"`
	Reply          string   `json:"reply,omitempty"`
	Remembered     []string `json:"remembered,omitempty"`
}

// Server serializes every tool call against one world.
type Server struct {
	world *world.World
	debug *debug.Logger

	mu            sync.Mutex
	conversations map[string]*world.Conversation
}

func NewServer(w *world.World, debugLogger *debug.Logger) *Server {
	return &Server{
		world:         w,
		debug:         debugLogger,
		conversations: make(map[string]*world.Conversation),
	}
}

// MCPServer registers the tools on a new protocol server.
func (s *Server) MCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "observe",
		Description: "Record an observation in one agent's memory",
	}, s.Observe)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_memory",
		Description: "Return an agent's k most relevant memories for a query",
	}, s.QueryMemory)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "tick",
		Description: "Run one or more rounds of gossip between agents",
	}, s.Tick)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph",
		Description: "List the social graph's edges, optionally localized to one agent by strength or emotion",
	}, s.Graph)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "talk",
		Description: "Say a line to an agent as the player. Pass end=true to finish the conversation",
	}, s.Talk)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reflect",
		Description: "Make an agent reflect on its recent memories",
	}, s.Reflect)

	return server
}

// Run serves the tools over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.debug.Printf("mcp: serving %s %s over stdio", ServerName, ServerVersion)
	return s.MCPServer().Run(ctx, mcp.NewStdioTransport())
}

func textResult[Out any](text string) *mcp.CallToolResultFor[Out] {
	return &mcp.CallToolResultFor[Out]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult[Out any](err error) *mcp.CallToolResultFor[Out] {
	return &mcp.CallToolResultFor[Out]{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

func jsonResult[Out any](v interface{}) (*mcp.CallToolResultFor[Out], error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return textResult[Out](string(data)), nil
}

func (s *Server) Observe(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ObserveArgs]) (*mcp.CallToolResultFor[any], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := params.Arguments
	if strings.TrimSpace(args.Text) == "" {
		return errorResult[any](fmt.Errorf("text is required")), nil
	}
	if err := s.world.Observe(ctx, args.Agent, args.Text); err != nil {
		return errorResult[any](err), nil
	}
	return textResult[any](fmt.Sprintf("%s observed: %s", args.Agent, args.Text)), nil
}

func (s *Server) QueryMemory(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[QueryArgs]) (*mcp.CallToolResultFor[any], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := params.Arguments
	a, err := s.world.Agent(args.Agent)
	if err != nil {
		return errorResult[any](err), nil
	}
	k := args.K
	if k <= 0 {
		k = 3
	}
	if n := a.Memory().Len(); k > n {
		k = n
	}
	memories, err := a.Memory().Query(ctx, args.Query, k, s.world.Clock.Now())
	if err != nil {
		return errorResult[any](err), nil
	}
	return jsonResult[any](memories)
}

func (s *Server) Tick(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[TickArgs]) (*mcp.CallToolResultFor[any], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := params.Arguments.Count
	if count <= 0 {
		count = 1
	}
	reports := make([]*grapevine.TickReport, 0, count)
	for i := 0; i < count; i++ {
		report, err := s.world.Graph.Tick(ctx)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return errorResult[any](fmt.Errorf("tick %d: %w", i+1, err)), nil
		}
	}
	return jsonResult[any](reports)
}

func (s *Server) Graph(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[GraphArgs]) (*mcp.CallToolResultFor[any], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := params.Arguments
	g := s.world.Graph
	if args.Around != "" {
		var err error
		switch args.By {
		case "", "strength":
			g, err = g.SubsetByStrength(args.Around, args.Thresh)
		case "emotion":
			g, err = g.SubsetByEmotion(args.Around, args.Thresh)
		default:
			err = fmt.Errorf("unknown subset %q, want strength or emotion", args.By)
		}
		if err != nil {
			return errorResult[any](err), nil
		}
	}
	return jsonResult[any](g.Edges())
}

// Talk opens a conversation when no id is given and replies to the line. A call with
// End set closes the conversation and returns what the agent remembered.
func (s *Server) Talk(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[TalkArgs]) (*mcp.CallToolResultFor[any], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := params.Arguments
	id := args.ConversationID
	conv, ok := s.conversations[id]
	if !ok {
		if id != "" {
			return errorResult[any](fmt.Errorf("unknown conversation %s", id)), nil
		}
		var err error
		conv, err = s.world.StartConversation(args.Agent)
		if err != nil {
			return errorResult[any](err), nil
		}
		id = uuid.New().String()
		s.conversations[id] = conv
		s.debug.Printf("mcp: conversation %s started with %s", id, args.Agent)
	}
	ctx = context.WithValue(ctx, observability.GetSessionIDKey(), id)

	out := TalkReply{ConversationID: id}
	if strings.TrimSpace(args.Line) != "" {
		reply, err := conv.Say(ctx, args.Line)
		if err != nil {
			return errorResult[any](err), nil
		}
		out.Reply = reply
	}
	if args.End {
		remembered, err := conv.End(ctx)
		delete(s.conversations, id)
		if err != nil {
			return errorResult[any](err), nil
		}
		out.Remembered = remembered
	}
	return jsonResult[any](out)
}

func (s *Server) Reflect(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ReflectArgs]) (*mcp.CallToolResultFor[any], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.world.Agent(params.Arguments.Agent)
	if err != nil {
		return errorResult[any](err), nil
	}
	insights, err := a.Reflect(ctx, s.world.Clock.Advance())
	if err != nil {
		return errorResult[any](err), nil
	}
	return jsonResult[any](insights)
}
