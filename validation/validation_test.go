package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCharacterSplitterConfig(t *testing.T) {
	tests := []struct {
		name         string
		chunkSize    int
		chunkOverlap int
		wantErr      bool
	}{
		{"default params", 1000, 200, false},
		{"zero overlap is valid", 1000, 0, false},
		{"overlap equals chunk size", 100, 100, false},
		{"chunk size zero", 0, 200, true},
		{"overlap negative", 1000, -1, true},
		{"overlap greater than chunk size", 1000, 2000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCharacterSplitterConfig(CharacterSplitterConfig{
				ChunkSize:    tt.chunkSize,
				ChunkOverlap: tt.chunkOverlap,
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	err := ValidateCharacterSplitterConfig(CharacterSplitterConfig{ChunkSize: 0, ChunkOverlap: -1})
	require.Error(t, err)

	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs, 2)
	assert.Equal(t, "validation failed: chunk_size: must be positive (got: 0); chunk_overlap: must be non-negative (got: -1)", err.Error())
}

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "docs", false},
		{"with separators", "my-docs_2024.v1", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"leading dash", "-docs", true},
		{"trailing dot", "docs.", true},
		{"slash", "a/b/c", true},
		{"space", "my docs", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if tt.wantErr {
				assert.Error(t, err, tt.input)
			} else {
				assert.NoError(t, err, tt.input)
			}
		})
	}
}
