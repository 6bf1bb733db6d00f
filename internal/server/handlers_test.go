package server

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
)

// writeScene writes a 64x64 Rayleigh clutter scene with bright targets as a
// 16-bit PNG and returns its path.
func writeScene(t *testing.T) string {
	t.Helper()

	r := imaging.RayleighClutter(64, 64, 30, 77)
	imaging.InjectTargets(r, 376, 14, 9)

	path := filepath.Join(t.TempDir(), "scene.png")
	if err := imaging.SaveRaster(path, r); err != nil {
		t.Fatalf("failed to save scene: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPResponse {
	t.Helper()

	paramsJSON, _ := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil || out == nil {
		return resp
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	text := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("failed to decode %s result %q: %v", name, text, err)
	}
	return resp
}

func TestHandleToolsCall_Detect(t *testing.T) {
	s := New()
	scene := writeScene(t)
	dir := t.TempDir()
	maskPath := filepath.Join(dir, "mask.png")
	overlayPath := filepath.Join(dir, "overlay.png")

	var result struct {
		OutputPath  string `json:"output_path"`
		OverlayPath string `json:"overlay_path"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		Stats       struct {
			Pixels  int `json:"pixels"`
			Targets int `json:"targets"`
		} `json:"stats"`
		Tiles []json.RawMessage `json:"tiles"`
	}
	resp := callTool(t, s, "cfar_detect", map[string]interface{}{
		"path":                       scene,
		"output_path":                maskPath,
		"overlay_path":               overlayPath,
		"probability_of_false_alarm": 1e-4,
		"maximum_mixture_count":      1,
		"seed":                       3,
		"include_tiles":              true,
	}, &result)

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if result.Width != 64 || result.Height != 64 {
		t.Errorf("size: got %dx%d, want 64x64", result.Width, result.Height)
	}
	if result.Stats.Pixels != 64*64 {
		t.Errorf("pixels: got %d", result.Stats.Pixels)
	}
	if result.Stats.Targets < 9 {
		t.Errorf("targets: got %d, want at least the 9 injected", result.Stats.Targets)
	}
	if len(result.Tiles) != 1 {
		t.Errorf("tiles: got %d, want 1", len(result.Tiles))
	}

	mask, err := imaging.LoadRaster(maskPath)
	if err != nil {
		t.Fatalf("failed to load mask: %v", err)
	}
	if mask.Width != 64 || mask.Height != 64 {
		t.Errorf("mask size: got %dx%d", mask.Width, mask.Height)
	}
	if _, err := os.Stat(overlayPath); err != nil {
		t.Errorf("overlay not written: %v", err)
	}
}

func TestHandleToolsCall_DetectWithoutTiles(t *testing.T) {
	s := New()
	var result map[string]interface{}
	resp := callTool(t, s, "cfar_detect", map[string]interface{}{
		"path":                  writeScene(t),
		"output_path":           filepath.Join(t.TempDir(), "mask.png"),
		"maximum_mixture_count": 1,
	}, &result)

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if _, ok := result["tiles"]; ok {
		t.Error("tiles should be omitted unless requested")
	}
}

func TestHandleToolsCall_DetectErrors(t *testing.T) {
	s := New()
	scene := writeScene(t)
	out := filepath.Join(t.TempDir(), "mask.png")

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{"missing path", map[string]interface{}{"output_path": out}, "path is required"},
		{"missing output", map[string]interface{}{"path": scene}, "output_path is required"},
		{"bad pfa", map[string]interface{}{"path": scene, "output_path": out, "probability_of_false_alarm": 2}, "probability_of_false_alarm"},
		{"bad guard", map[string]interface{}{"path": scene, "output_path": out, "guard_radius": -3}, "guard_radius"},
		{"missing file", map[string]interface{}{"path": "/nonexistent/scene.png", "output_path": out}, "failed to open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "cfar_detect", tt.args, nil)
			if resp.Error == nil {
				t.Fatal("expected an error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("code: got %d, want -32000", resp.Error.Code)
			}
			if data, _ := resp.Error.Data.(string); !strings.Contains(data, tt.wantErr) {
				t.Errorf("data: got %q, want it to contain %q", data, tt.wantErr)
			}
		})
	}
}

func TestHandleToolsCall_FitMixture(t *testing.T) {
	s := New()
	plotPath := filepath.Join(t.TempDir(), "fit.png")

	var result struct {
		Count      int       `json:"count"`
		Weights    []float64 `json:"weights"`
		Sigmas     []float64 `json:"sigmas"`
		Intervals  []float64 `json:"intervals"`
		Pixels     int       `json:"pixels"`
		FinalError *float64  `json:"final_error"`
		PlotPath   string    `json:"plot_path"`
		Region     struct{ X1, Y1, X2, Y2 int }
	}
	resp := callTool(t, s, "cfar_fit_mixture", map[string]interface{}{
		"path":                  writeScene(t),
		"region":                map[string]int{"x1": 0, "y1": 0, "x2": 32, "y2": 40},
		"maximum_mixture_count": 3,
		"seed":                  11,
		"plot_path":             plotPath,
	}, &result)

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if result.Count < 1 || result.Count > 3 {
		t.Errorf("count: got %d", result.Count)
	}
	if len(result.Weights) != result.Count || len(result.Sigmas) != result.Count {
		t.Errorf("weights/sigmas: got %d/%d for %d components", len(result.Weights), len(result.Sigmas), result.Count)
	}
	if len(result.Intervals) != result.Count+2 {
		t.Errorf("intervals: got %d, want %d", len(result.Intervals), result.Count+2)
	}
	var sum float64
	for _, w := range result.Weights {
		sum += w
	}
	if sum < 1-1e-9 || sum > 1+1e-9 {
		t.Errorf("weights sum to %v", sum)
	}
	if result.Pixels <= 0 || result.Pixels > 32*40 {
		t.Errorf("pixels: got %d", result.Pixels)
	}
	if result.Region.X2 != 32 || result.Region.Y2 != 40 {
		t.Errorf("region: got %+v", result.Region)
	}
	if _, err := os.Stat(plotPath); err != nil {
		t.Errorf("plot not written: %v", err)
	}
}

func TestHandleToolsCall_FitMixtureErrors(t *testing.T) {
	s := New()
	scene := writeScene(t)

	empty := imaging.NewRaster(16, 16)
	emptyPath := filepath.Join(t.TempDir(), "empty.png")
	if err := imaging.SaveRaster(emptyPath, empty); err != nil {
		t.Fatalf("failed to save raster: %v", err)
	}

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{"missing path", map[string]interface{}{}, "path is required"},
		{"outside region", map[string]interface{}{"path": scene, "region": map[string]int{"x1": 100, "y1": 100, "x2": 120, "y2": 120}}, "outside image bounds"},
		{"no clutter", map[string]interface{}{"path": emptyPath}, "no uncensored clutter"},
		{"bad counts", map[string]interface{}{"path": scene, "maximum_mixture_count": 0}, "maximum_mixture_count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "cfar_fit_mixture", tt.args, nil)
			if resp.Error == nil {
				t.Fatal("expected an error")
			}
			if data, _ := resp.Error.Data.(string); !strings.Contains(data, tt.wantErr) {
				t.Errorf("data: got %q, want it to contain %q", data, tt.wantErr)
			}
		})
	}
}

func TestHandleToolsCall_ImageInfo(t *testing.T) {
	s := New()
	var info imaging.RasterInfo
	resp := callTool(t, s, "image_info", map[string]interface{}{"path": writeScene(t)}, &info)

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if info.Width != 64 || info.Height != 64 {
		t.Errorf("size: got %dx%d", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s", info.Format)
	}
	if info.MaxIntensity != 376 {
		t.Errorf("max intensity: got %d, want 376", info.MaxIntensity)
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache: got %d entries, want 1", s.cache.Len())
	}
}

func TestHandleToolsCall_Parameters(t *testing.T) {
	s := New()

	tests := []struct {
		name        string
		args        map[string]interface{}
		clutterArea int
		minimumArea int
		bandWidth   int
	}{
		{"defaults", map[string]interface{}{}, 320, 160, 32},
		{"small window", map[string]interface{}{"guard_radius": 1, "clutter_radius": 1}, 16, 8, 8},
		{"no guard", map[string]interface{}{"guard_radius": 0, "clutter_radius": 3}, 48, 24, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result parametersResult
			resp := callTool(t, s, "cfar_parameters", tt.args, &result)
			if resp.Error != nil {
				t.Fatalf("Unexpected error: %v", resp.Error)
			}
			if result.ClutterArea != tt.clutterArea {
				t.Errorf("clutter area: got %d, want %d", result.ClutterArea, tt.clutterArea)
			}
			if result.MinimumClutterArea != tt.minimumArea {
				t.Errorf("minimum clutter area: got %d, want %d", result.MinimumClutterArea, tt.minimumArea)
			}
			if result.BandWidth != tt.bandWidth {
				t.Errorf("band width: got %d, want %d", result.BandWidth, tt.bandWidth)
			}
			if result.Deterministic || !result.RequiresGlobalHistogram {
				t.Errorf("flags: got deterministic=%v global=%v", result.Deterministic, result.RequiresGlobalHistogram)
			}
		})
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	resp := callTool(t, New(), "image_ocr_full", map[string]interface{}{}, nil)
	if resp.Error == nil {
		t.Fatal("expected an error")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("data: got %q", data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	resp := New().handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}
}

func TestToolResponse_EncodeFailure(t *testing.T) {
	s := New()

	resp := s.toolResponse(7, "cfar_fit_mixture", map[string]float64{"sigma": math.NaN()})
	if resp.Error == nil {
		t.Fatal("Expected error for unencodable result")
	}
	if resp.Error.Code != -32603 {
		t.Errorf("Expected error code -32603, got %d", resp.Error.Code)
	}
	if resp.Result != nil {
		t.Errorf("Expected no result, got %v", resp.Result)
	}
	if resp.ID != 7 {
		t.Errorf("Expected id 7, got %v", resp.ID)
	}

	resp = s.toolResponse(8, "image_info", map[string]int{"width": 3})
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if text := content[0]["text"].(string); !strings.Contains(text, `"width": 3`) {
		t.Errorf("Expected encoded result, got %q", text)
	}
}

func TestFinite(t *testing.T) {
	if v := finite(2.5); v == nil || *v != 2.5 {
		t.Errorf("finite(2.5): got %v", v)
	}
	if v := finite(math.Inf(1)); v != nil {
		t.Errorf("finite(+Inf): got %v, want nil", *v)
	}
}

func TestHandleToolsCall_DetectPreview(t *testing.T) {
	s := New()
	var result struct {
		Preview *imaging.Preview `json:"preview"`
	}
	resp := callTool(t, s, "cfar_detect", map[string]interface{}{
		"path":                  writeScene(t),
		"output_path":           filepath.Join(t.TempDir(), "mask.png"),
		"maximum_mixture_count": 1,
		"preview":               true,
		"preview_scale":         2,
		"show_tiles":            true,
		"tile_size":             32,
	}, &result)

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if result.Preview == nil {
		t.Fatal("preview missing")
	}
	if result.Preview.Width != 128 || result.Preview.Height != 128 {
		t.Errorf("preview size: got %dx%d, want 128x128", result.Preview.Width, result.Preview.Height)
	}
	if result.Preview.MimeType != "image/png" || result.Preview.ImageBase64 == "" {
		t.Errorf("preview encoding: got %q with %d bytes", result.Preview.MimeType, len(result.Preview.ImageBase64))
	}
}
