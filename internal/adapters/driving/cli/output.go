package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// printer writes command output, styled when stdout is a terminal.
type printer struct {
	out    io.Writer
	styled bool
	styles *styles.Styles
}

func newPrinter(cmd *cobra.Command) *printer {
	out := cmd.OutOrStdout()
	f, ok := out.(*os.File)
	return &printer{
		out:    out,
		styled: ok && term.IsTerminal(int(f.Fd())),
		styles: styles.DefaultStyles(),
	}
}

func (p *printer) render(style lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// answer prints an answer with its confidence, citations and sources.
func (p *printer) answer(result *domain.AnswerResult) {
	p.printf("%s\n\n", result.AnswerText)

	label := string(result.ConfidenceLabel)
	p.printf("%s %s (strength %.2f, coverage %.2f)\n",
		p.render(p.styles.Muted, "Confidence:"),
		p.render(p.styles.Confidence(result.ConfidenceLabel), label),
		result.Strength, result.Coverage)

	if len(result.Citations) > 0 {
		refs := make([]string, len(result.Citations))
		for i, c := range result.Citations {
			refs[i] = p.render(p.styles.Citation, c.Ref)
		}
		p.printf("%s %s\n", p.render(p.styles.Muted, "Cited:"), strings.Join(refs, ", "))
	}

	if len(result.Sources) == 0 {
		return
	}
	p.printf("\n%s\n", p.render(p.styles.Subtitle, "Sources"))
	cited := make(map[string]bool, len(result.Citations))
	for _, c := range result.Citations {
		cited[c.ChunkID] = true
	}
	for _, src := range result.Sources {
		p.source(src, cited[src.ChunkID])
	}
}

// source prints one retrieved source. Cited sources are marked with "*".
func (p *printer) source(src domain.SourceView, cited bool) {
	marker := " "
	if cited {
		marker = "*"
	}
	location := fmt.Sprintf("chunk %d", src.ChunkIndex)
	if src.Page != nil {
		location += fmt.Sprintf(", page %d", *src.Page)
	}
	p.printf("%s [%s] %s %s\n", marker,
		p.render(p.styles.Citation, src.Ref),
		p.render(p.styles.Muted, fmt.Sprintf("(%s, score %.3f)", location, src.Score)),
		src.Preview)
}

// formatBytes renders a byte count for humans.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
