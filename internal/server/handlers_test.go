package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFramePair writes a disk mask and an intensity image that rises from
// left to right inside the disk. It returns both paths.
func writeFramePair(t *testing.T, width, height int, cx, cy, r float64) (string, string) {
	t.Helper()
	dir := t.TempDir()

	mask := image.NewGray(image.Rect(0, 0, width, height))
	intensity := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				mask.SetGray(x, y, color.Gray{Y: 255})
				intensity.SetGray(x, y, color.Gray{Y: uint8(40 + x)})
			}
		}
	}

	maskPath := filepath.Join(dir, "mask.png")
	intPath := filepath.Join(dir, "intensity.png")
	for path, img := range map[string]image.Image{maskPath: mask, intPath: intensity} {
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			t.Fatalf("failed to encode %s: %v", path, err)
		}
		f.Close()
	}
	return maskPath, intPath
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPError {
	t.Helper()
	params, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	if out != nil {
		if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
			t.Fatalf("failed to decode tool result: %v", err)
		}
	}
	return nil
}

func TestHandleToolsCall_LoadFrame(t *testing.T) {
	s := New()
	maskPath, intPath := writeFramePair(t, 100, 80, 50, 40, 20)

	var got struct {
		Width            int     `json:"width"`
		Height           int     `json:"height"`
		MaskFormat       string  `json:"mask_format"`
		ColorDepth       string  `json:"color_depth"`
		ForegroundPixels int     `json:"foreground_pixels"`
		IntensityMax     float64 `json:"intensity_max"`
	}
	if e := callTool(t, s, "membrane_load_frame", map[string]interface{}{
		"mask_path":      maskPath,
		"intensity_path": intPath,
	}, &got); e != nil {
		t.Fatalf("tool failed: %v", e.Data)
	}

	if got.Width != 100 || got.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", got.Width, got.Height)
	}
	if got.MaskFormat != "png" || got.ColorDepth != "8-bit" {
		t.Errorf("format %s depth %s", got.MaskFormat, got.ColorDepth)
	}
	if math.Abs(float64(got.ForegroundPixels)-math.Pi*400) > 0.1*math.Pi*400 {
		t.Errorf("ForegroundPixels = %d, want about %.0f", got.ForegroundPixels, math.Pi*400)
	}
	if got.IntensityMax != 40+70 {
		t.Errorf("IntensityMax = %v, want 110", got.IntensityMax)
	}
	if s.cache.Len() != 2 {
		t.Errorf("cache holds %d images, want 2", s.cache.Len())
	}
}

func TestHandleToolsCall_ExtractContour(t *testing.T) {
	s := New()
	maskPath, _ := writeFramePair(t, 120, 120, 60, 60, 40)

	var got ContourResult
	if e := callTool(t, s, "membrane_extract_contour", map[string]interface{}{"mask_path": maskPath}, &got); e != nil {
		t.Fatalf("tool failed: %v", e.Data)
	}
	if got.ResampledPoints != 75 || len(got.Contour) != 75 {
		t.Errorf("resampled %d points (%d returned), want 75", got.ResampledPoints, len(got.Contour))
	}
	if want := math.Pi * 40 * 40; math.Abs(got.Area-want) > 0.08*want {
		t.Errorf("Area = %v, want about %v", got.Area, want)
	}
	if math.Abs(got.Centroid.X-60) > 0.5 || math.Abs(got.Centroid.Y-60) > 0.5 {
		t.Errorf("Centroid = %v, want (60,60)", got.Centroid)
	}
}

type frameResultJSON struct {
	FrameIndex   int    `json:"frame_index"`
	Status       string `json:"status"`
	Measurements []struct {
		Curvature *float64 `json:"curvature"`
		Intensity *float64 `json:"intensity"`
	} `json:"measurements"`
	Correlation struct {
		Coefficient *float64 `json:"coefficient"`
		Status      string   `json:"status"`
	} `json:"correlation"`
}

func TestHandleToolsCall_AnalyzeFrame(t *testing.T) {
	s := New()
	maskPath, intPath := writeFramePair(t, 120, 120, 60, 60, 40)

	var got frameResultJSON
	if e := callTool(t, s, "membrane_analyze_frame", map[string]interface{}{
		"mask_path":      maskPath,
		"intensity_path": intPath,
		"frame_index":    7,
	}, &got); e != nil {
		t.Fatalf("tool failed: %v", e.Data)
	}

	if got.FrameIndex != 7 || got.Status != "ok" {
		t.Errorf("frame %d status %s", got.FrameIndex, got.Status)
	}
	if len(got.Measurements) != 75 {
		t.Errorf("got %d measurements, want 75", len(got.Measurements))
	}
	complete := 0
	for _, m := range got.Measurements {
		if m.Curvature != nil && m.Intensity != nil {
			complete++
		}
	}
	if complete < 60 {
		t.Errorf("only %d complete measurements", complete)
	}
	if got.Correlation.Status != "ok" && got.Correlation.Status != "insufficient_data" {
		t.Errorf("correlation status %q", got.Correlation.Status)
	}
}

func TestHandleToolsCall_ConfigOverrides(t *testing.T) {
	s := New()
	maskPath, intPath := writeFramePair(t, 120, 120, 60, 60, 40)
	args := func(config map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"mask_path": maskPath, "intensity_path": intPath, "config": config}
	}

	var got frameResultJSON
	if e := callTool(t, s, "membrane_analyze_frame", args(map[string]interface{}{"target_points": 40}), &got); e != nil {
		t.Fatalf("tool failed: %v", e.Data)
	}
	if len(got.Measurements) != 40 {
		t.Errorf("got %d measurements, want 40", len(got.Measurements))
	}

	if e := callTool(t, s, "membrane_analyze_frame", args(map[string]interface{}{"target_points": "50"}), &got); e != nil {
		t.Fatalf("string number rejected: %v", e.Data)
	}
	if len(got.Measurements) != 50 {
		t.Errorf("got %d measurements, want 50", len(got.Measurements))
	}

	tests := []struct {
		name   string
		config map[string]interface{}
		want   string
	}{
		{"unknown key", map[string]interface{}{"bogus": 1}, "bogus"},
		{"even segment", map[string]interface{}{"segment_length": 8}, "segment_length"},
		{"unknown method", map[string]interface{}{"curvature_method": "spline"}, "curvature_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := callTool(t, s, "membrane_analyze_frame", args(tt.config), nil)
			if e == nil {
				t.Fatal("expected an error")
			}
			if e.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", e.Code)
			}
			if data, _ := e.Data.(string); !strings.Contains(data, tt.want) {
				t.Errorf("error %q does not mention %q", data, tt.want)
			}
		})
	}
}

func TestHandleToolsCall_AnalyzeStack(t *testing.T) {
	s := New()
	m1, i1 := writeFramePair(t, 100, 100, 50, 50, 30)
	m2, i2 := writeFramePair(t, 100, 100, 45, 52, 25)

	var got struct {
		RunID  string            `json:"run_id"`
		Frames []frameResultJSON `json:"frames"`
		Failed int               `json:"failed"`
	}
	if e := callTool(t, s, "membrane_analyze_stack", map[string]interface{}{
		"frames": []map[string]interface{}{
			{"mask_path": m1, "intensity_path": i1},
			{"mask_path": m2, "intensity_path": i2},
		},
		"workers": 2,
	}, &got); e != nil {
		t.Fatalf("tool failed: %v", e.Data)
	}

	if got.RunID == "" || got.Failed != 0 || len(got.Frames) != 2 {
		t.Fatalf("got run %q, %d frames, %d failed", got.RunID, len(got.Frames), got.Failed)
	}
	for i, f := range got.Frames {
		if f.FrameIndex != i || f.Status != "ok" {
			t.Errorf("frame %d: index %d status %s", i, f.FrameIndex, f.Status)
		}
	}

	e := callTool(t, s, "membrane_analyze_stack", map[string]interface{}{
		"frames": []map[string]interface{}{
			{"mask_path": m1, "intensity_path": i1},
			{"mask_path": "/nonexistent/mask.png", "intensity_path": i1},
		},
	}, nil)
	if e == nil {
		t.Fatal("expected an error for a missing file")
	}
	if data, _ := e.Data.(string); !strings.Contains(data, "frame 1") {
		t.Errorf("error %q does not name the frame", data)
	}
}

func TestHandleToolsCall_Rendering(t *testing.T) {
	s := New()
	maskPath, intPath := writeFramePair(t, 100, 100, 50, 50, 35)

	var overlay struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		MimeType string `json:"mime_type"`
		Image    string `json:"image_base64"`
	}
	if e := callTool(t, s, "membrane_overlay", map[string]interface{}{
		"mask_path":      maskPath,
		"intensity_path": intPath,
		"scale":          3,
		"show_regions":   true,
		"contour_color":  "#00FF00",
	}, &overlay); e != nil {
		t.Fatalf("overlay failed: %v", e.Data)
	}
	if overlay.Width != 300 || overlay.Height != 300 || overlay.MimeType != "image/png" || overlay.Image == "" {
		t.Errorf("overlay: %dx%d %s", overlay.Width, overlay.Height, overlay.MimeType)
	}

	var plot struct {
		Kind  string `json:"kind"`
		Pairs int    `json:"pairs"`
		Image string `json:"image_base64"`
	}
	if e := callTool(t, s, "membrane_plot", map[string]interface{}{
		"mask_path":      maskPath,
		"intensity_path": intPath,
		"kind":           "profile",
	}, &plot); e != nil {
		t.Fatalf("plot failed: %v", e.Data)
	}
	if plot.Kind != "profile" || plot.Pairs == 0 || plot.Image == "" {
		t.Errorf("plot: kind %s pairs %d", plot.Kind, plot.Pairs)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := New()
	maskPath, intPath := writeFramePair(t, 60, 60, 30, 30, 20)
	otherMask, _ := writeFramePair(t, 50, 60, 25, 30, 20)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"unknown tool", "image_load", map[string]interface{}{}},
		{"missing paths", "membrane_analyze_frame", map[string]interface{}{}},
		{"missing file", "membrane_load_frame", map[string]interface{}{"mask_path": "/nonexistent.png", "intensity_path": intPath}},
		{"shape mismatch", "membrane_analyze_frame", map[string]interface{}{"mask_path": otherMask, "intensity_path": intPath}},
		{"bad mask level", "membrane_load_frame", map[string]interface{}{"mask_path": maskPath, "intensity_path": intPath, "mask_level": 300}},
		{"empty stack", "membrane_analyze_stack", map[string]interface{}{"frames": []interface{}{}}},
		{"empty mask", "membrane_extract_contour", map[string]interface{}{"mask_path": maskPath, "mask_level": 255, "config": map[string]interface{}{"min_object_size": 5000}}},
		{"bad plot kind", "membrane_plot", map[string]interface{}{"mask_path": maskPath, "intensity_path": intPath, "kind": "pie"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := callTool(t, s, tt.tool, tt.args, nil)
			if e == nil {
				t.Fatal("expected an error")
			}
			if e.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", e.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("got %+v, want -32602", resp)
	}
}
