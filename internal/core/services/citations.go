package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

var (
	// tagGroup matches a bracketed group and any horizontal space before it.
	tagGroup = regexp.MustCompile(`[ \t]*\[([^\[\]\n]{1,160})\]`)

	// refToken matches a source label such as S1 or s12.
	refToken = regexp.MustCompile(`^[Ss](\d{1,4})$`)

	// danglingTag matches a tag cut off at the end of the output, e.g. "[S1, S".
	danglingTag = regexp.MustCompile(`[ \t]*\[(?:[Ss]\d*(?:\s*[,;]\s*(?:[Ss]\d*)?)*)?$`)

	// spaceBeforePunct matches space stranded before punctuation by tag removal.
	spaceBeforePunct = regexp.MustCompile(`[ \t]+([.,;:!?])`)
)

// ParseCitations strips reference tags from generated text and resolves
// them against the evidence set. It is the only place generated tags are
// interpreted.
//
// A bracketed group is a tag when each comma or semicolon separated token
// is a source label (S1) or the ID of an evidence chunk. Tags are removed
// from the text; tokens naming a chunk outside the evidence are dropped
// without a citation. Other bracketed text, such as "[sic]", is left as is.
// Citations are unique per chunk, in order of first appearance, and always
// reference a member of evidence.
func ParseCitations(text string, evidence []domain.RetrievedSource) (string, []domain.Citation) {
	byRef := make(map[string]int, len(evidence))
	byChunk := make(map[string]int, len(evidence))
	for i, src := range evidence {
		byRef[src.Ref] = i
		byChunk[src.Chunk.ID] = i
	}

	var citations []domain.Citation
	cited := make(map[string]bool)
	cite := func(i int) {
		src := evidence[i]
		if cited[src.Chunk.ID] {
			return
		}
		cited[src.Chunk.ID] = true
		citations = append(citations, domain.Citation{
			Ref:        src.Ref,
			ChunkID:    src.Chunk.ID,
			DocumentID: src.Chunk.DocumentID,
			ChunkIndex: src.Chunk.Index,
		})
	}

	cleaned := tagGroup.ReplaceAllStringFunc(text, func(match string) string {
		inner := match[strings.IndexByte(match, '[')+1 : len(match)-1]
		tokens := strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ';' })
		if len(tokens) == 0 {
			return match
		}

		resolved := make([]int, 0, len(tokens))
		for _, tok := range tokens {
			tok = strings.TrimSpace(tok)
			if i, ok := byChunk[tok]; ok {
				resolved = append(resolved, i)
				continue
			}
			m := refToken.FindStringSubmatch(tok)
			if m == nil {
				// Not a tag group.
				return match
			}
			n, _ := strconv.Atoi(m[1])
			if i, ok := byRef[domain.SourceRef(n-1)]; ok && n > 0 {
				resolved = append(resolved, i)
			}
		}
		for _, i := range resolved {
			cite(i)
		}
		return ""
	})

	cleaned = danglingTag.ReplaceAllString(cleaned, "")
	cleaned = spaceBeforePunct.ReplaceAllString(cleaned, "$1")
	return strings.TrimSpace(cleaned), citations
}
