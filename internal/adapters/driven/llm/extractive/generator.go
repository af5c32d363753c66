// Package extractive provides an offline answer generator that quotes the
// evidence sentences sharing the most content words with the question.
package extractive

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/tkrief1/doc-detective/internal/adapters/driven/embedding/hashing"
	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.AnswerGenerator = (*Generator)(nil)

// DefaultMaxSentences is the default number of sentences in an answer.
const DefaultMaxSentences = 3

// Name is the generator's model name.
const Name = "extractive"

// Generator answers by extracting tagged sentences from the evidence.
type Generator struct {
	maxSentences int
}

// Option configures the generator.
type Option func(*Generator)

// WithMaxSentences caps how many sentences an answer quotes.
func WithMaxSentences(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxSentences = n
		}
	}
}

// New creates a new extractive generator.
func New(opts ...Option) *Generator {
	g := &Generator{maxSentences: DefaultMaxSentences}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name identifies the generator.
func (g *Generator) Name() string {
	return Name
}

type candidate struct {
	sentence string
	ref      string
	score    int
	evidence int
	position int
}

// Generate returns the best matching evidence sentences, each followed by
// the ref of the chunk it came from. It reports insufficient evidence when
// no sentence shares a content word with the query.
func (g *Generator) Generate(ctx context.Context, query string, evidence []domain.Evidence) (domain.Generation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Generation{}, err
	}

	terms := contentTerms(query)
	if len(terms) == 0 {
		return domain.Generation{Insufficient: true}, nil
	}

	var candidates []candidate
	seen := make(map[string]bool)
	for ei, ev := range evidence {
		for pi, sentence := range Sentences(ev.Text) {
			key := strings.ToLower(sentence)
			if seen[key] {
				continue
			}
			seen[key] = true

			score := 0
			for term := range contentTerms(sentence) {
				if terms[term] {
					score++
				}
			}
			if score > 0 {
				candidates = append(candidates, candidate{
					sentence: sentence, ref: ev.Ref, score: score, evidence: ei, position: pi,
				})
			}
		}
	}
	if len(candidates) == 0 {
		return domain.Generation{Insufficient: true}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].evidence != candidates[j].evidence {
			return candidates[i].evidence < candidates[j].evidence
		}
		return candidates[i].position < candidates[j].position
	})
	if len(candidates) > g.maxSentences {
		candidates = candidates[:g.maxSentences]
	}

	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = c.sentence + " [" + c.ref + "]"
	}
	return domain.Generation{Text: strings.Join(parts, " ")}, nil
}

// Sentences splits text at sentence punctuation followed by whitespace and
// at line breaks. Fragments without a letter or digit are dropped.
func Sentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		s := strings.Join(strings.Fields(b.String()), " ")
		b.Reset()
		if strings.IndexFunc(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			out = append(out, s)
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			flush()
		}
	}
	flush()
	return out
}

// contentTerms returns the normalised non-stopword tokens of text.
func contentTerms(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, tok := range hashing.Tokenize(text) {
		tok = strings.Trim(tok, "'")
		tok = strings.TrimSuffix(tok, "'s")
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		terms[stem(tok)] = true
	}
	return terms
}

// stem folds simple plurals so "towers" matches "tower".
func stem(tok string) string {
	switch {
	case len(tok) > 4 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss"):
		return tok[:len(tok)-1]
	}
	return tok
}

var stopwords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true, "am": true, "an": true,
	"and": true, "any": true, "are": true, "as": true, "at": true, "be": true, "been": true,
	"before": true, "being": true, "but": true, "by": true, "can": true, "could": true,
	"did": true, "do": true, "does": true, "doing": true, "for": true, "from": true,
	"had": true, "has": true, "have": true, "he": true, "her": true, "here": true,
	"him": true, "his": true, "how": true, "if": true, "in": true, "into": true, "is": true,
	"it": true, "its": true, "me": true, "my": true, "no": true, "not": true, "of": true,
	"on": true, "or": true, "our": true, "she": true, "so": true, "some": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "those": true, "to": true,
	"was": true, "we": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "whom": true, "why": true, "will": true, "with": true,
	"would": true, "you": true, "your": true, "tell": true, "please": true, "document": true,
}
