package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/rmsat-cfar/internal/cfar"
	"github.com/ironsheep/rmsat-cfar/internal/config"
	"github.com/ironsheep/rmsat-cfar/internal/detection"
	"github.com/ironsheep/rmsat-cfar/internal/imaging"
	"github.com/ironsheep/rmsat-cfar/internal/mixture"
	"github.com/ironsheep/rmsat-cfar/internal/report"
	"github.com/ironsheep/rmsat-cfar/internal/tiling"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "cfar_detect", "image_info").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

var (
	errPathRequired = errors.New("path is required")
	errNoClutter    = errors.New("region holds no uncensored clutter")
)

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return s.toolResponse(req.ID, params.Name, result)
}

// toolResponse wraps a tool result in MCP text content. A result that cannot be
// encoded yields an internal error (-32603).
func (s *Server) toolResponse(id interface{}, name string, result interface{}) *MCPResponse {
	text, err := marshalJSON(result)
	if err != nil {
		s.log.Error().Err(err).Str("tool", name).Msg("failed to encode tool result")
		return s.errorResponse(id, -32603, "Internal error", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": text,
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	switch name {
	case "cfar_detect":
		return s.handleDetect(args)
	case "cfar_fit_mixture":
		return s.handleFitMixture(args)
	case "image_info":
		return s.handleImageInfo(args)
	case "cfar_parameters":
		return s.handleParameters(args)
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

// marshalJSON converts a value to a pretty-printed JSON string.
func marshalJSON(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(b), nil
}

// callConfig returns the server configuration overridden by the settings of a
// single call.
func (s *Server) callConfig(o *config.Config) (*config.Config, error) {
	cfg := *s.cfg
	cfg.Merge(o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finite returns nil for infinite or NaN values, which JSON cannot encode.
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// === Detection ===

type detectArgs struct {
	config.Config

	Path         string `json:"path"`
	OutputPath   string `json:"output_path"`
	OverlayPath  string `json:"overlay_path,omitempty"`
	IncludeTiles bool   `json:"include_tiles"`

	Preview      bool    `json:"preview"`
	PreviewScale float64 `json:"preview_scale"`
	ShowTiles    bool    `json:"show_tiles"`
}

type detectResult struct {
	OutputPath  string           `json:"output_path"`
	OverlayPath string           `json:"overlay_path,omitempty"`
	Preview     *imaging.Preview `json:"preview,omitempty"`

	*cfar.Report
}

func (s *Server) handleDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	if a.OutputPath == "" {
		return nil, errors.New("output_path is required")
	}

	cfg, err := s.callConfig(&a.Config)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	det := cfar.NewRmSAT(cfg.Options(&s.base))
	mask, rep, err := det.ExecuteWithReport(context.Background(), img, cfg.GetProbabilityOfFalseAlarm(), cfg.Parameters())
	if err != nil {
		return nil, err
	}
	if err := imaging.SaveMask(a.OutputPath, mask); err != nil {
		return nil, err
	}

	result := &detectResult{OutputPath: a.OutputPath, OverlayPath: a.OverlayPath, Report: rep}

	var overlay imaging.OverlayOptions
	if a.ShowTiles && !cfg.GetCropToBoundingBox() {
		overlay.Grid = cfg.GetTileSize()
	}
	if a.OverlayPath != "" {
		if err := imaging.SaveOverlay(a.OverlayPath, img, mask, overlay); err != nil {
			return nil, err
		}
	}
	if a.Preview {
		ov, err := imaging.Overlay(img, mask, overlay)
		if err != nil {
			return nil, err
		}
		if result.Preview, err = imaging.EncodePreview(ov, a.PreviewScale); err != nil {
			return nil, err
		}
	}

	if !a.IncludeTiles {
		rep.Tiles = nil
	}
	return result, nil
}

// === Mixture fit ===

type fitArgs struct {
	Path     string         `json:"path"`
	Region   *tiling.Bounds `json:"region,omitempty"`
	PlotPath string         `json:"plot_path,omitempty"`

	MinimumMixtureCount *int    `json:"minimum_mixture_count,omitempty"`
	MaximumMixtureCount *int    `json:"maximum_mixture_count,omitempty"`
	Seed                *uint64 `json:"seed,omitempty"`
}

type fitResult struct {
	Region         tiling.Bounds `json:"region"`
	Pixels         int           `json:"pixels"`
	CensoredPixels int           `json:"censored_pixels"`

	Count      int       `json:"count"`
	Intervals  []float64 `json:"intervals"`
	Weights    []float64 `json:"weights"`
	Sigmas     []float64 `json:"sigmas"`
	Iterations int       `json:"iterations"`
	Fallback   bool      `json:"fallback"`

	// Errors are omitted when the optimizer never reached a valid mixture.
	InitialError *float64 `json:"initial_error,omitempty"`
	FinalError   *float64 `json:"final_error,omitempty"`

	PlotPath string `json:"plot_path,omitempty"`
}

func (s *Server) handleFitMixture(args json.RawMessage) (interface{}, error) {
	var a fitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}

	cfg, err := s.callConfig(&config.Config{
		MinimumMixtureCount: a.MinimumMixtureCount,
		MaximumMixtureCount: a.MaximumMixtureCount,
		Seed:                a.Seed,
	})
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	region := img.Bounds()
	if a.Region != nil {
		region = a.Region.Rect().Intersect(img.Bounds())
		if region.Empty() {
			return nil, fmt.Errorf("region %v outside image bounds %v", a.Region.Rect(), img.Bounds())
		}
	}

	tile := img.SubRaster(region)
	if cfg.GetNormalizeTiles() {
		tile = imaging.RayleighCompliant(tile)
	}
	d := mixture.NewData(tile, cfar.GlobalHistogram(img), cfg.GetHistogramSize())
	if !d.Valid() {
		return nil, errNoClutter
	}

	fitter := mixture.NewFitter(mixture.FitterOptions{
		Seed:             cfg.GetSeed(),
		ComplexityWeight: cfg.GetComplexityWeight(),
		Logger:           &s.base,
	})
	m := fitter.Fit(d, cfg.GetMinimumMixtureCount(), cfg.GetMaximumMixtureCount())

	if a.PlotPath != "" {
		if err := report.WriteFitPlot(a.PlotPath, d, &m); err != nil {
			return nil, err
		}
	}

	return &fitResult{
		Region:         tiling.BoundsOf(region),
		Pixels:         d.PixelCount(),
		CensoredPixels: d.Censor.Count(),
		Count:          m.Count,
		Intervals:      m.Intervals,
		Weights:        m.Weights,
		Sigmas:         m.Sigmas,
		Iterations:     m.Iterations,
		Fallback:       m.Fallback,
		InitialError:   finite(m.InitialError),
		FinalError:     finite(m.FinalError),
		PlotPath:       a.PlotPath,
	}, nil
}

// === Image information ===

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	return imaging.LoadRasterInfo(s.cache, a.Path)
}

// === Parameters ===

type parametersResult struct {
	Parameters cfar.Parameters `json:"parameters"`

	ClutterArea        int `json:"clutter_area"`
	MinimumClutterArea int `json:"minimum_clutter_area"`
	BandWidth          int `json:"band_width"`
	TileSize           int `json:"tile_size"`

	Deterministic           bool `json:"deterministic"`
	RequiresGlobalHistogram bool `json:"requires_global_histogram"`
}

func (s *Server) handleParameters(args json.RawMessage) (interface{}, error) {
	var a config.Config
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.callConfig(&a)
	if err != nil {
		return nil, err
	}

	det := cfar.NewRmSAT(cfg.Options(nil))
	params := cfg.Parameters()
	guard := cfg.GetGuardRadius()
	return &parametersResult{
		Parameters:              params,
		ClutterArea:             det.ClutterArea(params),
		MinimumClutterArea:      detection.MinimumClutterArea(guard, guard+cfg.GetClutterRadius()),
		BandWidth:               det.BandWidth(params),
		TileSize:                det.Options().TileSize,
		Deterministic:           det.IsDeterministic(),
		RequiresGlobalHistogram: det.RequiresGlobalHistogram(),
	}, nil
}
