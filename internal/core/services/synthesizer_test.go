package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

func fastGate() *CapabilityGate {
	return NewCapabilityGate(domain.ConcurrencySettings{MaxRetries: 2, CallTimeout: time.Second})
}

func TestSynthesizer_LimitsEvidence(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{{gen: domain.Generation{Text: "A [S1]."}}}}
	s := NewSynthesizer(gen, fastGate())

	answer, err := s.Synthesize(context.Background(), "q", testEvidence(5), 2)
	require.NoError(t, err)

	require.Len(t, gen.evidence, 2)
	assert.Equal(t, "S1", gen.evidence[0].Ref)
	assert.Equal(t, "S2", gen.evidence[1].Ref)
	assert.Equal(t, 2, answer.EvidenceCount)
}

func TestSynthesizer_DropsTagsOutsideEvidence(t *testing.T) {
	// S3 was retrieved but not offered as evidence.
	gen := &scriptedGenerator{results: []scriptedResult{{gen: domain.Generation{Text: "A [S1]. B [S3]."}}}}
	s := NewSynthesizer(gen, fastGate())

	answer, err := s.Synthesize(context.Background(), "q", testEvidence(3), 2)
	require.NoError(t, err)

	assert.Equal(t, "A. B.", answer.Text)
	assert.Equal(t, []string{"S1"}, citedRefs(answer.Citations))
}

func TestSynthesizer_Insufficient(t *testing.T) {
	tests := []struct {
		name string
		gen  domain.Generation
	}{
		{"reported", domain.Generation{Insufficient: true, Text: "ignored [S1]"}},
		{"empty text", domain.Generation{Text: "  "}},
		{"tags only", domain.Generation{Text: "[S1]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{results: []scriptedResult{{gen: tt.gen}}}
			answer, err := NewSynthesizer(gen, fastGate()).Synthesize(context.Background(), "q", testEvidence(2), 3)
			require.NoError(t, err)

			assert.True(t, answer.Insufficient)
			assert.Equal(t, domain.InsufficientEvidenceAnswer, answer.Text)
			assert.Empty(t, answer.Citations)
			assert.Equal(t, 2, answer.EvidenceCount)
		})
	}
}

func TestSynthesizer_RetriesThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{
		{err: errors.New("overloaded")},
		{err: errors.New("overloaded")},
		{gen: domain.Generation{Text: "A [S1]."}},
	}}

	answer, err := NewSynthesizer(gen, fastGate()).Synthesize(context.Background(), "q", testEvidence(1), 3)
	require.NoError(t, err)
	assert.Equal(t, "A.", answer.Text)
	assert.Equal(t, 3, gen.calls)
}

func TestSynthesizer_GenerationFailed(t *testing.T) {
	cause := errors.New("overloaded")
	gen := &scriptedGenerator{results: []scriptedResult{{err: cause}}}

	_, err := NewSynthesizer(gen, fastGate()).Synthesize(context.Background(), "q", testEvidence(1), 3)

	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "GenerationFailed", domain.ErrorKind(err))
	assert.Equal(t, 3, gen.calls, "first attempt plus two retries")
}

func TestSynthesizer_GenerationTimeout(t *testing.T) {
	gate := NewCapabilityGate(domain.ConcurrencySettings{MaxRetries: 1, CallTimeout: 10 * time.Millisecond})
	gen := &blockingGenerator{started: make(chan struct{}, 1)}

	_, err := NewSynthesizer(gen, gate).Synthesize(context.Background(), "q", testEvidence(1), 3)

	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.ErrorIs(t, err, domain.ErrCapabilityTimeout)
	assert.Equal(t, "CapabilityTimeout", domain.ErrorKind(err))
}

func TestSynthesizer_InvalidMaxSources(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{{gen: domain.Generation{Text: "A"}}}}

	_, err := NewSynthesizer(gen, fastGate()).Synthesize(context.Background(), "q", testEvidence(1), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Zero(t, gen.calls)
}

func TestSynthesizer_NoSources(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{{gen: domain.Generation{Text: "A"}}}}

	answer, err := NewSynthesizer(gen, fastGate()).Synthesize(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	assert.True(t, answer.Insufficient)
	assert.Zero(t, gen.calls)
}
