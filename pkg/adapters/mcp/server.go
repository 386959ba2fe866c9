// Package mcp exposes the inspector engine as an MCP server so AI agents can
// classify factor pairs, serialize designs and inspect files over the Model
// Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	inspector "github.com/vals/anndata-design-inspector"
	"github.com/vals/anndata-design-inspector/internal/presentation/card"
	"github.com/vals/anndata-design-inspector/internal/presentation/diagram"
	"github.com/vals/anndata-design-inspector/pkg/domain"
	"github.com/vals/anndata-design-inspector/pkg/grammar"
	"github.com/vals/anndata-design-inspector/pkg/nesting"
)

// GrammarResponse is the structured output of design_to_grammar.
type GrammarResponse struct {
	Grammar string `json:"grammar" jsonschema_description:"The design-grammar string"`
}

// Server wraps the inspector Engine and exposes it as an MCP Server.
type Server struct {
	engine    *inspector.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *inspector.Engine, logger *slog.Logger) *Server {
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("adi-mcp", inspector.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, shutting down MCP server")
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

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: classify_nesting
	classifyTool := mcp.NewTool("classify_nesting",
		mcp.WithDescription("Classify two sets of category labels as nested or crossed using substring name matching."),
		mcp.WithString("parent_labels", mcp.Required(), mcp.Description("JSON array of candidate parent labels")),
		mcp.WithString("child_labels", mcp.Required(), mcp.Description("JSON array of candidate child labels")),
		mcp.WithOutputSchema[nesting.Result](),
	)
	s.mcpServer.AddTool(classifyTool, mcp.NewStructuredToolHandler(s.handleClassify))

	// TOOL: design_to_grammar
	grammarTool := mcp.NewTool("design_to_grammar",
		mcp.WithDescription("Serialize a design document to its design-grammar string, e.g. \"Genotype(2) > Sample(4) : CellType(3)\"."),
		mcp.WithString("design", mcp.Required(), mcp.Description("JSON design document with factors and relationships")),
		mcp.WithOutputSchema[GrammarResponse](),
	)
	s.mcpServer.AddTool(grammarTool, mcp.NewStructuredToolHandler(s.handleGrammar))

	// TOOL: render_diagram
	s.mcpServer.AddTool(mcp.NewTool("render_diagram",
		mcp.WithDescription("Render a design document as an ASCII or Mermaid diagram."),
		mcp.WithString("design", mcp.Required(), mcp.Description("JSON design document")),
		mcp.WithString("format", mcp.Description("\"ascii\" (default) or \"mermaid\"")),
	), s.handleDiagram)

	// TOOL: inspect_design
	s.mcpServer.AddTool(mcp.NewTool("inspect_design",
		mcp.WithDescription("Inspect an .h5ad file on the server's filesystem and report its inferred experimental design."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the .h5ad file")),
	), s.handleInspect)

	// TOOL: generate_card
	s.mcpServer.AddTool(mcp.NewTool("generate_card",
		mcp.WithDescription("Inspect an .h5ad file and generate a Markdown experiment card documenting its design."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the .h5ad file")),
		mcp.WithString("species", mcp.Description("Species of the dataset, e.g. \"mouse\"")),
	), s.handleCard)
}

// Handler methods for structured tools

func (s *Server) handleClassify(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (nesting.Result, error) {
	var in struct {
		ParentLabels string `mapstructure:"parent_labels"`
		ChildLabels  string `mapstructure:"child_labels"`
	}
	if err := mapstructure.Decode(args, &in); err != nil {
		return nesting.Result{}, fmt.Errorf("decoding arguments: %w", err)
	}

	parent, err := parseLabelList(in.ParentLabels, "parent_labels")
	if err != nil {
		return nesting.Result{}, err
	}
	child, err := parseLabelList(in.ChildLabels, "child_labels")
	if err != nil {
		return nesting.Result{}, err
	}
	return nesting.Classify(parent, child), nil
}

func (s *Server) handleGrammar(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (GrammarResponse, error) {
	design, err := designArg(args)
	if err != nil {
		return GrammarResponse{}, err
	}

	out, err := grammar.Serialize(design)
	if err != nil {
		s.logger.Warn("MCP design_to_grammar: invalid design", "err", err)
		return GrammarResponse{}, err
	}
	return GrammarResponse{Grammar: out}, nil
}

func (s *Server) handleDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	design, err := designArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := grammar.Validate(design); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid design: %v", err)), nil
	}

	format, _ := args["format"].(string)
	switch format {
	case "mermaid":
		return mcp.NewToolResultText(diagram.GenerateMermaid(design)), nil
	case "", "ascii":
		return mcp.NewToolResultText(diagram.Render(design)), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	report, err := s.engine.Inspect(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(report)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	report, err := s.engine.Inspect(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}

	md, err := card.Generate(card.Input{
		File:        report.File,
		Species:     request.GetString("species", ""),
		TotalCells:  report.TotalCells,
		DesignType:  report.DesignType,
		Grammar:     report.Grammar,
		Diagram:     report.Diagram,
		Design:      report.Design,
		Notes:       report.Notes,
		ToolVersion: inspector.Version,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("card generation failed: %v", err)), nil
	}
	return mcp.NewToolResultText(md), nil
}

// parseLabelList decodes a JSON string-array argument.
func parseLabelList(raw, key string) ([]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("%s is required", key)
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, fmt.Errorf("%s must be a JSON array of strings: %w", key, err)
	}
	return labels, nil
}

// designArg decodes the "design" argument into a domain.Design.
func designArg(args map[string]interface{}) (*domain.Design, error) {
	raw, _ := args["design"].(string)
	if raw == "" {
		return nil, fmt.Errorf("design is required")
	}
	var design domain.Design
	if err := json.Unmarshal([]byte(raw), &design); err != nil {
		return nil, fmt.Errorf("design must be a JSON design document: %w", err)
	}
	return &design, nil
}
