package validation

import (
	"fmt"
)

// CharacterSplitterConfig holds configuration for CharacterTextSplitter validation.
type CharacterSplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

// ValidateCharacterSplitterConfig validates CharacterTextSplitter configuration.
// An overlap equal to the chunk size is accepted; a larger one is not.
func ValidateCharacterSplitterConfig(cfg CharacterSplitterConfig) error {
	v := NewValidator()

	v.RequirePositive(cfg.ChunkSize, "chunk_size")
	v.RequireNonNegative(cfg.ChunkOverlap, "chunk_overlap")

	if cfg.ChunkOverlap > cfg.ChunkSize && cfg.ChunkSize > 0 {
		v.AddError("chunk_overlap",
			fmt.Sprintf("must not exceed chunk_size (%d)", cfg.ChunkSize),
			cfg.ChunkOverlap)
	}

	return v.Error()
}
