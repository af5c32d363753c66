package eval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// CaseResult is the outcome of one golden case.
type CaseResult struct {
	Name       string  `json:"name"`
	DocumentID string  `json:"document_id"`
	Query      string  `json:"query"`
	Expected   []int   `json:"expected_citations"`
	Cited      []int   `json:"cited"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`

	Confidence         domain.ConfidenceLabel `json:"confidence"`
	ExpectedConfidence domain.ConfidenceLabel `json:"expected_confidence,omitempty"`

	Latency time.Duration `json:"latency"`
	Calls   Calls         `json:"calls"`

	// Error is set when the case could not be answered.
	Error string `json:"error,omitempty"`
}

// ConfidenceMatches reports whether the label matched, or true when no
// label was expected.
func (r CaseResult) ConfidenceMatches() bool {
	return r.ExpectedConfidence == "" || r.ExpectedConfidence == r.Confidence
}

// Report summarises a suite run. Means cover only answered cases.
type Report struct {
	Results       []CaseResult  `json:"results"`
	Answered      int           `json:"answered"`
	Failed        int           `json:"failed"`
	MeanPrecision float64       `json:"mean_precision"`
	MeanRecall    float64       `json:"mean_recall"`
	MeanLatency   time.Duration `json:"mean_latency"`
	LabelMatches  int           `json:"label_matches"`
	LabelChecks   int           `json:"label_checks"`
	Calls         Calls         `json:"calls"`
}

// Runner answers golden cases through the driving ports.
type Runner struct {
	documents driving.DocumentService
	index     driving.IndexService
	answers   driving.AnswerService
	counter   *Counter
	retrieval domain.RetrievalSettings

	// ingested maps resolved document paths to document IDs.
	ingested map[string]string
	now      func() time.Time
}

// SetRetrieval sets the top_k and max_sources used when a case does not
// name its own top_k. Non-positive values are ignored.
func (r *Runner) SetRetrieval(s domain.RetrievalSettings) {
	if s.TopK > 0 {
		r.retrieval.TopK = s.TopK
	}
	if s.MaxSources > 0 {
		r.retrieval.MaxSources = s.MaxSources
	}
}

// NewRunner creates a runner. index may be nil, in which case documents
// are indexed by the answer service on first use. counter may be nil.
func NewRunner(
	documents driving.DocumentService,
	index driving.IndexService,
	answers driving.AnswerService,
	counter *Counter,
) *Runner {
	return &Runner{
		documents: documents,
		index:     index,
		answers:   answers,
		counter:   counter,
		retrieval: domain.DefaultRetrievalSettings(),
		ingested:  make(map[string]string),
		now:       time.Now,
	}
}

// Run answers every case in order. A failing case is recorded and the run
// continues; only cancellation or a document that cannot be ingested stops it.
// Documents ingested from suite files are deleted when Run returns.
func (r *Runner) Run(ctx context.Context, suite *Suite) (*Report, error) {
	defer r.removeIngested(context.WithoutCancel(ctx))

	report := &Report{}
	start := r.counter.Calls()

	for _, c := range suite.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docID := c.DocumentID
		if c.Document != "" {
			id, err := r.ingest(ctx, suite.DocumentPath(c))
			if err != nil {
				return nil, fmt.Errorf("case %q: %w", c.Name, err)
			}
			docID = id
		}

		res := r.runCase(ctx, c, docID)
		if res.Error != "" && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		report.add(res)
	}

	report.finish()
	report.Calls = r.counter.Calls().Sub(start)
	return report, nil
}

func (r *Runner) runCase(ctx context.Context, c Case, docID string) CaseResult {
	res := CaseResult{
		Name:               c.Name,
		DocumentID:         docID,
		Query:              c.Query,
		Expected:           c.ExpectedCitations,
		ExpectedConfidence: domain.ConfidenceLabel(c.ExpectedConfidence),
	}

	before := r.counter.Calls()
	began := r.now()
	q := domain.Query{
		DocumentID: docID,
		Text:       c.Query,
		TopK:       r.retrieval.TopK,
		MaxSources: r.retrieval.MaxSources,
	}
	if c.TopK > 0 {
		q.TopK = c.TopK
	}
	q.MaxSources = min(q.MaxSources, q.TopK)
	answer, err := r.answers.Answer(ctx, q)
	res.Latency = r.now().Sub(began)
	res.Calls = r.counter.Calls().Sub(before)
	if err != nil {
		logger.Warn("eval case %q failed: %v", c.Name, err)
		res.Error = err.Error()
		return res
	}

	res.Confidence = answer.ConfidenceLabel
	res.Cited = CitedChunks(answer)
	res.Precision, res.Recall = PrecisionRecall(res.Cited, c.ExpectedCitations)
	logger.Debug("eval case %q: cited=%v precision=%.2f recall=%.2f", c.Name, res.Cited, res.Precision, res.Recall)
	return res
}

// ingest stores a document file once per run and indexes it when an
// index service is available.
func (r *Runner) ingest(ctx context.Context, path string) (string, error) {
	if id, ok := r.ingested[path]; ok {
		return id, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: document %s does not exist", domain.ErrInvalidInput, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := r.documents.Ingest(ctx, &domain.RawDocument{
		Filename: filepath.Base(path),
		Content:  content,
	})
	if err != nil {
		return "", fmt.Errorf("ingest %s: %w", path, err)
	}
	r.ingested[path] = doc.ID

	if r.index != nil {
		if _, err := r.documents.Chunk(ctx, doc.ID); err != nil {
			return "", fmt.Errorf("chunk %s: %w", path, err)
		}
		if _, err := r.index.Embed(ctx, doc.ID); err != nil {
			return "", fmt.Errorf("embed %s: %w", path, err)
		}
	}

	logger.Debug("eval ingested %s as %s", path, doc.ID)
	return doc.ID, nil
}

// removeIngested deletes the documents ingested by the current run so
// repeated runs leave the library unchanged.
func (r *Runner) removeIngested(ctx context.Context) {
	for path, id := range r.ingested {
		if err := r.documents.Delete(ctx, id); err != nil {
			logger.Warn("eval cleanup of %s (%s) failed: %v", path, id, err)
		}
		delete(r.ingested, path)
	}
}

func (rep *Report) add(res CaseResult) {
	rep.Results = append(rep.Results, res)
	if res.Error != "" {
		rep.Failed++
		return
	}
	rep.Answered++
	rep.MeanPrecision += res.Precision
	rep.MeanRecall += res.Recall
	rep.MeanLatency += res.Latency
	if res.ExpectedConfidence != "" {
		rep.LabelChecks++
		if res.ConfidenceMatches() {
			rep.LabelMatches++
		}
	}
}

func (rep *Report) finish() {
	if rep.Answered == 0 {
		return
	}
	n := float64(rep.Answered)
	rep.MeanPrecision /= n
	rep.MeanRecall /= n
	rep.MeanLatency /= time.Duration(rep.Answered)
}

// CitedChunks returns the chunk indices of an answer's citations, in
// citation order, resolved through the answer's sources.
func CitedChunks(answer *domain.AnswerResult) []int {
	indexByChunk := make(map[string]int, len(answer.Sources))
	for _, s := range answer.Sources {
		indexByChunk[s.ChunkID] = s.ChunkIndex
	}
	cited := make([]int, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		if idx, ok := indexByChunk[c.ChunkID]; ok {
			cited = append(cited, idx)
		}
	}
	return cited
}

// PrecisionRecall compares cited chunk indices to the expected ones.
// Citing nothing is fully precise only when nothing was expected, and
// expecting nothing is always fully recalled.
func PrecisionRecall(cited, expected []int) (precision, recall float64) {
	want := make(map[int]bool, len(expected))
	for _, idx := range expected {
		want[idx] = true
	}
	got := make(map[int]bool, len(cited))
	for _, idx := range cited {
		got[idx] = true
	}

	hits := 0
	for idx := range got {
		if want[idx] {
			hits++
		}
	}

	switch {
	case len(got) > 0:
		precision = float64(hits) / float64(len(got))
	case len(want) == 0:
		precision = 1
	}
	if len(want) == 0 {
		recall = 1
	} else {
		recall = float64(hits) / float64(len(want))
	}
	return precision, recall
}
