package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// parameterProperties are the detector settings accepted by the detection and
// parameter tools. Omitted settings fall back to the server configuration.
func parameterProperties() map[string]interface{} {
	return map[string]interface{}{
		"guard_radius": map[string]interface{}{
			"type":        "integer",
			"description": "Radius of the guard square excluded around the tested pixel (default 5)",
			"minimum":     0,
		},
		"clutter_radius": map[string]interface{}{
			"type":        "integer",
			"description": "Width of the clutter ring outside the guard square (default 5)",
			"minimum":     1,
		},
		"minimum_mixture_count": map[string]interface{}{
			"type":        "integer",
			"description": "Lowest number of Rayleigh components tried (default 1)",
			"minimum":     1,
		},
		"maximum_mixture_count": map[string]interface{}{
			"type":        "integer",
			"description": "Highest number of Rayleigh components tried (default 5)",
			"minimum":     1,
		},
	}
}

func regionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional region as pixel bounds, x2/y2 exclusive. Default is the whole image.",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "cfar_detect",
			Description: "Run the RmSAT-CFAR detector on a single-channel intensity image and write the binary target mask " +
				"(255 = target) as PNG. Returns detection statistics per run and optionally per tile.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(parameterProperties(), map[string]interface{}{
					"path":        pathProperty("Absolute path to the intensity image"),
					"output_path": pathProperty("Absolute path of the mask image to write"),
					"overlay_path": pathProperty("Optional absolute path of a PNG preview with targets " +
						"highlighted over the contrast-stretched image"),
					"probability_of_false_alarm": map[string]interface{}{
						"type":        "number",
						"description": "Probability of false alarm in (0, 1) (default 1e-4)",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Optimizer seed; 0 draws one from the clock",
					},
					"crop_to_bounding_box": map[string]interface{}{
						"type":        "boolean",
						"description": "Only process the nonzero extent of the image",
					},
					"preview": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the overlay inline as a base64-encoded PNG",
						"default":     false,
					},
					"preview_scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor of the inline preview (default 1.0, longer edge capped at 2048)",
						"default":     1.0,
					},
					"show_tiles": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw tile boundaries on the overlay and preview",
						"default":     false,
					},
					"include_tiles": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the per-tile report in the result",
						"default":     false,
					},
				}),
				"required": []string{"path", "output_path"},
			},
		},
		{
			Name: "cfar_fit_mixture",
			Description: "Fit the Rayleigh mixture clutter model to an image region and return the component weights, " +
				"scales and percentile breakpoints. Optionally plot the empirical and fitted densities.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty("Absolute path to the intensity image"),
					"region":    regionProperty(),
					"plot_path": pathProperty("Optional absolute path of the fit plot (.png, .svg or .pdf)"),
					"minimum_mixture_count": map[string]interface{}{
						"type":        "integer",
						"description": "Lowest number of Rayleigh components tried (default 1)",
					},
					"maximum_mixture_count": map[string]interface{}{
						"type":        "integer",
						"description": "Highest number of Rayleigh components tried (default 5)",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Optimizer seed; 0 draws one from the clock",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_info",
			Description: "Load an intensity image and return its dimensions, format, intensity range and nonzero bounding box.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name: "cfar_parameters",
			Description: "Resolve detector parameters and report the clutter area, tile halo width and " +
				"detector properties they imply.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": parameterProperties(),
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
