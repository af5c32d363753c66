package memory

import (
	"context"
	"sync"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure AnswerLog implements the interface.
var _ driven.AnswerLog = (*AnswerLog)(nil)

// AnswerLog is an in-memory implementation of driven.AnswerLog.
type AnswerLog struct {
	mu      sync.RWMutex
	records []domain.AnswerRecord
}

// NewAnswerLog creates a new in-memory answer log.
func NewAnswerLog() *AnswerLog {
	return &AnswerLog{}
}

// Record appends an answer record.
func (l *AnswerLog) Record(_ context.Context, record domain.AnswerRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	record.CitedChunkIDs = append([]string(nil), record.CitedChunkIDs...)
	l.records = append(l.records, record)
	return nil
}

// List returns the most recent records, newest first.
// A limit of zero or less returns every matching record.
func (l *AnswerLog) List(_ context.Context, documentID string, limit int) ([]domain.AnswerRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var result []domain.AnswerRecord
	for i := len(l.records) - 1; i >= 0; i-- {
		if documentID != "" && l.records[i].DocumentID != documentID {
			continue
		}
		result = append(result, l.records[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
