package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/membrane-tools-mcp/internal/analysis"
	"github.com/ironsheep/membrane-tools-mcp/internal/contour"
	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
	"github.com/ironsheep/membrane-tools-mcp/internal/report"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "membrane_analyze_frame").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Decodes the optional config onto the defaults
//  3. Loads frames from cache
//  4. Calls the analysis or report function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Frames
	case "membrane_load_frame":
		return s.handleLoadFrame(args)
	case "membrane_extract_contour":
		return s.handleExtractContour(args)

	// Analysis
	case "membrane_analyze_frame":
		return s.handleAnalyzeFrame(args)
	case "membrane_analyze_stack":
		return s.handleAnalyzeStack(ctx, args)

	// Rendering
	case "membrane_overlay":
		return s.handleOverlay(args)
	case "membrane_plot":
		return s.handlePlot(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments; missing arguments decode as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// frameArgs names the two files of one frame.
type frameArgs struct {
	MaskPath      string `json:"mask_path"`
	IntensityPath string `json:"intensity_path"`
	// MaskLevel is the foreground threshold; 0 means imaging.DefaultMaskLevel.
	MaskLevel int `json:"mask_level"`
}

func (a frameArgs) level() (uint8, error) {
	switch {
	case a.MaskLevel == 0:
		return imaging.DefaultMaskLevel, nil
	case a.MaskLevel < 0 || a.MaskLevel > 255:
		return 0, fmt.Errorf("mask_level %d outside 1..255", a.MaskLevel)
	}
	return uint8(a.MaskLevel), nil
}

func (a frameArgs) validate() error {
	if a.MaskPath == "" || a.IntensityPath == "" {
		return errors.New("mask_path and intensity_path are required")
	}
	return nil
}

func (s *Server) loadFrame(index int, a frameArgs) (imaging.Frame, error) {
	if err := a.validate(); err != nil {
		return imaging.Frame{}, err
	}
	level, err := a.level()
	if err != nil {
		return imaging.Frame{}, err
	}
	return imaging.LoadFrame(s.cache, index, a.MaskPath, a.IntensityPath, level)
}

// analyzeOne loads and analyses a single frame.
func (s *Server) analyzeOne(a frameArgs, config json.RawMessage) (imaging.Frame, *analysis.FrameResult, error) {
	p, err := s.newPipeline(config)
	if err != nil {
		return imaging.Frame{}, nil, err
	}
	frame, err := s.loadFrame(0, a)
	if err != nil {
		return imaging.Frame{}, nil, err
	}
	res, err := p.AnalyzeFrame(frame, nil)
	if err != nil {
		return imaging.Frame{}, nil, err
	}
	return frame, res, nil
}

// === Frame Handlers ===

func (s *Server) handleLoadFrame(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	level, err := a.level()
	if err != nil {
		return nil, err
	}
	return imaging.LoadFrameInfo(s.cache, a.MaskPath, a.IntensityPath, level)
}

type extractContourArgs struct {
	MaskPath  string          `json:"mask_path"`
	MaskLevel int             `json:"mask_level"`
	Config    json.RawMessage `json:"config"`
}

// ContourResult describes the prepared contour of a mask.
type ContourResult struct {
	RawPoints         int             `json:"raw_points"`
	ResampledPoints   int             `json:"resampled_points"`
	SmoothingFallback bool            `json:"smoothing_fallback"`
	Reduced           bool            `json:"reduced"`
	Perimeter         float64         `json:"perimeter"`
	Area              float64         `json:"area"`
	Centroid          r2.Point        `json:"centroid"`
	Contour           contour.Contour `json:"contour"`
}

func (s *Server) handleExtractContour(args json.RawMessage) (interface{}, error) {
	var a extractContourArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.MaskPath == "" {
		return nil, errors.New("mask_path is required")
	}
	level, err := frameArgs{MaskLevel: a.MaskLevel}.level()
	if err != nil {
		return nil, err
	}
	p, err := s.newPipeline(a.Config)
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.MaskPath)
	if err != nil {
		return nil, err
	}
	raw, resampled, fallback, reduced, err := p.PrepareContour(imaging.MaskFromImage(img, level), nil)
	if err != nil {
		return nil, err
	}
	return &ContourResult{
		RawPoints:         len(raw),
		ResampledPoints:   len(resampled),
		SmoothingFallback: fallback,
		Reduced:           reduced,
		Perimeter:         raw.Perimeter(),
		Area:              raw.Area(),
		Centroid:          raw.Centroid(),
		Contour:           resampled,
	}, nil
}

// === Analysis Handlers ===

type analyzeFrameArgs struct {
	frameArgs
	FrameIndex int             `json:"frame_index"`
	Config     json.RawMessage `json:"config"`
}

func (s *Server) handleAnalyzeFrame(args json.RawMessage) (interface{}, error) {
	var a analyzeFrameArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.newPipeline(a.Config)
	if err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a.FrameIndex, a.frameArgs)
	if err != nil {
		return nil, err
	}
	return p.AnalyzeFrame(frame, nil)
}

type analyzeStackArgs struct {
	Frames    []frameArgs     `json:"frames"`
	Workers   int             `json:"workers"`
	MaskLevel int             `json:"mask_level"`
	Config    json.RawMessage `json:"config"`
}

func (s *Server) handleAnalyzeStack(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a analyzeStackArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Frames) == 0 {
		return nil, errors.New("frames must list at least one frame")
	}
	if a.Workers < 0 {
		return nil, fmt.Errorf("workers %d must not be negative", a.Workers)
	}
	p, err := s.newPipeline(a.Config)
	if err != nil {
		return nil, err
	}

	frames := make([]imaging.Frame, len(a.Frames))
	for i, fa := range a.Frames {
		if fa.MaskLevel == 0 {
			fa.MaskLevel = a.MaskLevel
		}
		frames[i], err = s.loadFrame(i, fa)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return p.AnalyzeBatch(ctx, frames, a.Workers)
}

// === Rendering Handlers ===

type overlayArgs struct {
	frameArgs
	report.OverlayOptions
	Config json.RawMessage `json:"config"`
}

func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	frame, res, err := s.analyzeOne(a.frameArgs, a.Config)
	if err != nil {
		return nil, err
	}
	return report.Overlay(frame.Intensity, res, a.OverlayOptions)
}

type plotArgs struct {
	frameArgs
	report.PlotOptions
	Config json.RawMessage `json:"config"`
}

func (s *Server) handlePlot(args json.RawMessage) (interface{}, error) {
	var a plotArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	_, res, err := s.analyzeOne(a.frameArgs, a.Config)
	if err != nil {
		return nil, err
	}
	return report.Plot(res, a.PlotOptions)
}
