package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrEmptyDocument", ErrEmptyDocument},
		{"ErrInvalidConfig", ErrInvalidConfig},
		{"ErrNotChunked", ErrNotChunked},
		{"ErrIndexModelMismatch", ErrIndexModelMismatch},
		{"ErrEmptyIndex", ErrEmptyIndex},
		{"ErrInvalidArgument", ErrInvalidArgument},
		{"ErrGenerationFailed", ErrGenerationFailed},
		{"ErrCapabilityTimeout", ErrCapabilityTimeout},
		{"ErrEmbeddingFailed", ErrEmbeddingFailed},
		{"ErrPermanent", ErrPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"bare sentinel", ErrEmptyIndex, "EmptyIndex"},
		{"wrapped once", fmt.Errorf("retrieve: %w", ErrInvalidArgument), "InvalidArgument"},
		{"wrapped twice", fmt.Errorf("answer: %w", fmt.Errorf("embed: %w", ErrNotChunked)), "NotChunked"},
		{"timeout wins over generation", fmt.Errorf("%w: %w", ErrGenerationFailed, ErrCapabilityTimeout), "CapabilityTimeout"},
		{"model mismatch", fmt.Errorf("doc-1: %w", ErrIndexModelMismatch), "IndexModelMismatch"},
		{"unknown", errors.New("boom"), "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrEmptyIndex, ErrNotChunked))
	assert.False(t, errors.Is(ErrGenerationFailed, ErrCapabilityTimeout))
	assert.False(t, errors.Is(ErrEmbeddingFailed, ErrGenerationFailed))
}
