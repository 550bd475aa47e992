package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
	"github.com/ironsheep/sep-tools-mcp/internal/imaging"
	"github.com/ironsheep/sep-tools-mcp/internal/logging"
	"github.com/ironsheep/sep-tools-mcp/internal/sep"
	"github.com/ironsheep/sep-tools-mcp/internal/sli"
)

// Version is reported in the initialize handshake.
var Version = "dev"

// Options configures a Server.
type Options struct {
	// Registry resolves ink names for every presentation. Nil means
	// colorconfig.Default().
	Registry *colorconfig.Registry

	// Workers sizes the shared cache worker pool. Zero means one per CPU.
	Workers int

	// WhiteInk is the blend mode used for separations with a W channel
	// when sep_open does not name one.
	WhiteInk sep.WhiteInkMode

	Logger *slog.Logger
}

// Server handles MCP protocol communication
type Server struct {
	registry *colorconfig.Registry
	whiteInk sep.WhiteInkMode
	logger   *slog.Logger
	cache    *imaging.ImageCache
	pool     *sli.Pool

	mu            sync.Mutex
	presentations map[string]*sli.Presentation
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = colorconfig.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Server{
		registry:      opts.Registry,
		whiteInk:      opts.WhiteInk,
		logger:        logging.OrNop(opts.Logger),
		cache:         imaging.NewImageCache(),
		pool:          sli.NewPool(opts.Workers),
		presentations: make(map[string]*sli.Presentation),
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	defer s.Close()
	return s.Serve(context.Background(), os.Stdin, os.Stdout)
}

// Serve answers newline-delimited JSON-RPC requests from r on w until r is
// exhausted.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Error("failed to parse request", slog.Any("error", err))
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", slog.Any("error", err))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// Close closes every open presentation and stops the worker pool.
func (s *Server) Close() {
	s.mu.Lock()
	for path, p := range s.presentations {
		p.Close()
		delete(s.presentations, path)
	}
	s.mu.Unlock()
	s.cache.Clear()
	s.pool.Close()
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", slog.String("method", req.Method), slog.Any("id", req.ID))
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "sep-tools-mcp",
				"version": Version,
			},
		},
	}
}
