package postprocessors

import (
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Maximum characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
//   - boundary_preference (bool): Split at sentence/paragraph ends (default: true)
//   - boundary_tolerance (int): Boundary search window (default: chunk_size/4)
//
// Invalid combinations fail with domain.ErrInvalidConfig.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if _, ok := cfg["chunk_size"]; ok {
		opts = append(opts, chunker.WithChunkSize(getIntFromConfig(cfg, "chunk_size")))
	}
	if _, ok := cfg["overlap"]; ok {
		opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
	}
	if prefer, ok := cfg["boundary_preference"].(bool); ok {
		opts = append(opts, chunker.WithBoundaryPreference(prefer))
	}
	if _, ok := cfg["boundary_tolerance"]; ok {
		opts = append(opts, chunker.WithBoundaryTolerance(getIntFromConfig(cfg, "boundary_tolerance")))
	}

	p := chunker.New(opts...)
	if err := p.Settings().Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
