package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/membrane-tools-mcp/internal/analysis"
	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// DefaultVersion is reported in the initialize handshake unless WithVersion
// overrides it.
const DefaultVersion = "dev"

// DefaultMaxRequestBytes bounds one JSON-RPC line. A stack request carries
// two absolute paths per frame, so 16 MiB leaves room for tens of thousands
// of frames.
const DefaultMaxRequestBytes = 16 << 20

// Server handles MCP protocol communication
type Server struct {
	cache *imaging.FrameCache

	version         string
	maxRequestBytes int

	// debug receives pipeline diagnostics; nil keeps them quiet.
	debug *log.Logger
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

// Option configures a Server.
type Option func(*Server)

// WithDebugLogger routes per-frame warnings and batch progress to l.
func WithDebugLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.debug = l
	}
}

// WithVersion sets the version advertised in serverInfo.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// WithMaxRequestBytes caps the length of a single request line. Values
// below 64 KiB are raised to 64 KiB.
func WithMaxRequestBytes(n int) Option {
	return func(s *Server) {
		if n < minRequestBuffer {
			n = minRequestBuffer
		}
		s.maxRequestBytes = n
	}
}

const minRequestBuffer = 64 * 1024

// New creates a new MCP server instance
func New(opts ...Option) *Server {
	s := &Server{
		cache:           imaging.NewFrameCache(),
		version:         DefaultVersion,
		maxRequestBytes: DefaultMaxRequestBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(context.Background(), os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to
// w until r is exhausted. ctx bounds long-running tool calls.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, minRequestBuffer), s.maxRequestBytes)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				log.Printf("Failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("request exceeds %d bytes, split the stack or raise the limit: %w", s.maxRequestBytes, err)
		}
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
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
				"name":    "membrane-tools-mcp",
				"version": s.version,
			},
			"instructions": instructions(),
		},
	}
}

// instructions summarises the tool set and the defaults a client can
// override through the config argument.
func instructions() string {
	cfg := analysis.DefaultConfig()
	return fmt.Sprintf("Measures membrane curvature against cortex fluorescence from mask/intensity frame pairs. "+
		"%d tools. Defaults: %d contour points, %s curvature over %d-point segments, "+
		"%.3g px sampling depth, %.3g px vector width, %s interpolation, %s intensity. "+
		"Curvature is in 1/pixel_size units; positive is convex.",
		len(GetToolDefinitions()), cfg.TargetPoints, cfg.CurvatureMethod, cfg.SegmentLength,
		cfg.SamplingDepth, cfg.VectorWidth, cfg.Interpolation, cfg.MeasurementType)
}
