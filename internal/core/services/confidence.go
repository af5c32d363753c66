package services

import "github.com/tkrief1/doc-detective/internal/core/domain"

// ScoreConfidence labels an answer from retrieval strength and citation
// coverage.
//
// Strength is the top retrieval score clamped to [0,1]. Coverage is the
// number of distinct cited chunks over the evidence count. An answer with no
// citations is always low. It is high when both values meet the high bars,
// low when either falls below its low bar, and medium otherwise.
func ScoreConfidence(
	sources []domain.RetrievedSource, answer *domain.Answer, t domain.ConfidenceThresholds,
) domain.Confidence {
	var strength float64
	if len(sources) > 0 {
		strength = min(max(sources[0].Score, 0), 1)
	}

	distinct := make(map[string]struct{}, len(answer.Citations))
	for _, c := range answer.Citations {
		distinct[c.ChunkID] = struct{}{}
	}
	var coverage float64
	if answer.EvidenceCount > 0 {
		coverage = float64(len(distinct)) / float64(answer.EvidenceCount)
	}

	c := domain.Confidence{Strength: strength, Coverage: coverage}
	switch {
	case len(distinct) == 0 || answer.Insufficient:
		c.Label = domain.ConfidenceLow
	case strength >= t.HighStrength && coverage >= t.HighCoverage:
		c.Label = domain.ConfidenceHigh
	case strength < t.LowStrength || coverage < t.LowCoverage:
		c.Label = domain.ConfidenceLow
	default:
		c.Label = domain.ConfidenceMedium
	}
	return c
}
