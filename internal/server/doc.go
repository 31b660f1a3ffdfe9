// Package server implements the MCP (Model Context Protocol) server for
// membrane curvature analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes the analysis
// pipeline through the MCP protocol, so an MCP client can measure how
// fluorescence along a cell membrane relates to the membrane's local
// curvature.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Frames:
//   - membrane_load_frame: Load a mask/intensity pair and describe it
//   - membrane_extract_contour: Extract, smooth and resample the cell boundary
//
// Analysis:
//   - membrane_analyze_frame: Curvature and intensity per contour point, plus correlation
//   - membrane_analyze_stack: The same for a time series, frames analysed in parallel
//
// Rendering:
//   - membrane_overlay: Contour colored by curvature on the intensity image
//   - membrane_plot: Scatter or profile chart of curvature and intensity
//
// Every tool that runs the pipeline accepts an optional "config" object.
// Its keys are those of analysis.Config; values are overlaid on
// analysis.DefaultConfig and unknown keys are rejected.
//
// # Image Caching
//
// The server keeps decoded images in an imaging.FrameCache keyed by path, so
// repeated calls on the same frame skip disk I/O. The cache persists for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A frame that fails inside membrane_analyze_stack is not a tool error; it is
// reported in the batch result with status "failed".
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.New()
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
