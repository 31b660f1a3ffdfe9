package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// frameProperties are shared by every tool that reads a mask/intensity pair.
func frameProperties() map[string]interface{} {
	return map[string]interface{}{
		"mask_path":      stringProp("Absolute path to the binary segmentation mask (PNG, JPEG, GIF or TIFF)"),
		"intensity_path": stringProp("Absolute path to the fluorescence image, same size as the mask"),
		"mask_level": map[string]interface{}{
			"type":        "integer",
			"description": "Mask pixels at or above this gray level are foreground (1-255, scaled for 16-bit masks). Default 1 keeps every non-zero pixel",
			"default":     1,
		},
	}
}

// configProperty documents the optional analysis overrides.
func configProperty() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"description": "Optional analysis overrides. Keys: min_object_size, morph_kernel_size, " +
			"smoothing_method (gaussian|polynomial), smoothing_window, smoothing_sigma, poly_order, " +
			"target_points, segment_length (odd), curvature_method (circle_fit|differential), pixel_size, " +
			"normal_window, check_depth, check_points, min_interior_ratio, sampling_depth, vector_width, " +
			"sample_step, interpolation (nearest|bilinear), measurement_type (mean|max|min), border_margin, " +
			"min_relative_spread, classify_threshold, saturation_level. Unknown keys are rejected.",
		"additionalProperties": true,
	}
}

// withProps merges extra properties into a copy of base.
func withProps(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
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
		// Frames
		{
			Name:        "membrane_load_frame",
			Description: "Load a mask/intensity image pair and return its size, formats, bit depth, foreground pixel count and intensity range. Both files are cached for later calls.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": frameProperties(),
				"required":   []string{"mask_path", "intensity_path"},
			},
		},
		{
			Name:        "membrane_extract_contour",
			Description: "Extract the outer boundary of the largest object in a mask, then smooth and resample it. Returns point counts, perimeter, area, centroid and the resampled contour.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mask_path": stringProp("Absolute path to the binary segmentation mask"),
					"mask_level": map[string]interface{}{
						"type":        "integer",
						"description": "Foreground gray level (1-255). Default 1",
						"default":     1,
					},
					"config": configProperty(),
				},
				"required": []string{"mask_path"},
			},
		},

		// Analysis
		{
			Name:        "membrane_analyze_frame",
			Description: "Measure signed membrane curvature and adjacent fluorescence intensity at evenly spaced contour points, and correlate them. Positive curvature is convex, negative concave.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProps(frameProperties(), map[string]interface{}{
					"frame_index": map[string]interface{}{
						"type":        "integer",
						"description": "Index reported in the result. Default 0",
						"default":     0,
					},
					"config": configProperty(),
				}),
				"required": []string{"mask_path", "intensity_path"},
			},
		},
		{
			Name:        "membrane_analyze_stack",
			Description: "Analyse a time series of frames in parallel. Results keep input order; a frame that fails is reported as failed without stopping the others.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frames": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":       "object",
							"properties": frameProperties(),
							"required":   []string{"mask_path", "intensity_path"},
						},
						"description": "Frames in time order",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum frames analysed at once. Default 0 (one per frame)",
						"default":     0,
					},
					"mask_level": map[string]interface{}{
						"type":        "integer",
						"description": "Foreground gray level for frames that do not set their own. Default 1",
						"default":     1,
					},
					"config": configProperty(),
				},
				"required": []string{"frames"},
			},
		},

		// Rendering
		{
			Name:        "membrane_overlay",
			Description: "Analyse a frame and draw the contour on the intensity image, coloring each point by curvature (blue concave, white flat, red convex). Returns base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProps(frameProperties(), map[string]interface{}{
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer upscaling factor, 1-8. Default 1",
						"default":     1,
					},
					"contour_color": map[string]interface{}{
						"type":        "string",
						"description": "Contour color in hex (#RRGGBB or #RRGGBBAA). Default #FFDC00",
						"default":     "#FFDC00",
					},
					"show_regions": map[string]interface{}{
						"type":        "boolean",
						"description": "Outline every intensity sampling region",
						"default":     false,
					},
					"curvature_limit": map[string]interface{}{
						"type":        "number",
						"description": "Curvature magnitude mapped to full color. Default: the frame's largest",
					},
					"crop_to_cell": map[string]interface{}{
						"type":        "boolean",
						"description": "Crop the overlay to the cell's bounding box",
						"default":     false,
					},
					"crop_padding": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels kept around the cell when cropping. Default 0",
						"default":     0,
					},
					"config": configProperty(),
				}),
				"required": []string{"mask_path", "intensity_path"},
			},
		},
		{
			Name:        "membrane_plot",
			Description: "Analyse a frame and plot intensity against curvature (scatter with least-squares line) or both along the contour (profile, z-scored). Returns base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProps(frameProperties(), map[string]interface{}{
					"kind": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"scatter", "profile"},
						"description": "Chart to draw. Default scatter",
						"default":     "scatter",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Width in pixels. Default 640",
						"default":     640,
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Height in pixels. Default 480",
						"default":     480,
					},
					"title":  stringProp("Optional chart title"),
					"config": configProperty(),
				}),
				"required": []string{"mask_path", "intensity_path"},
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
