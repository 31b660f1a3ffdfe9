package server

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/ironsheep/membrane-tools-mcp/internal/analysis"
)

// decodeConfig overlays the optional "config" object of a tool call onto
// analysis.DefaultConfig. Unknown keys are rejected; numbers given as
// strings are accepted.
func decodeConfig(raw json.RawMessage) (analysis.Config, error) {
	cfg := analysis.DefaultConfig()
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}

	var overrides map[string]interface{}
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return cfg, fmt.Errorf("config must be an object: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(overrides); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// newPipeline decodes the config and builds a pipeline that logs to the
// server's debug logger.
func (s *Server) newPipeline(raw json.RawMessage) (*analysis.Pipeline, error) {
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, err
	}
	return analysis.NewPipeline(cfg, analysis.WithLogger(s.debug))
}
