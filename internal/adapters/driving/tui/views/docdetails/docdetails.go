// Package docdetails provides the document details view component for the TUI.
package docdetails

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// View shows a document's metadata and index status.
type View struct {
	styles *styles.Styles

	document     *domain.Document
	status       *domain.IndexStatus
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
}

// NewView creates a new document details view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		width:  80,
		height: 24,
	}
}

// SetDetails sets the document and its index status. status may be nil
// when no index service is available.
func (v *View) SetDetails(doc *domain.Document, status *domain.IndexStatus) {
	v.document = doc
	v.status = status
	v.scrollOffset = 0
	v.err = nil
}

// SetError sets an error to display.
func (v *View) SetError(err error) {
	v.err = err
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the document details view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentDetailsLoaded:
		if msg.Err != nil {
			v.SetError(msg.Err)
			return v, nil
		}
		v.SetDetails(msg.Document, msg.Status)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "a":
		if v.document == nil {
			return v, nil
		}
		doc := *v.document
		return v, func() tea.Msg {
			return messages.AskDocument{Document: doc}
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	}

	return v, nil
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Reserve lines for title, separator, help and padding
	return max(v.height-6, 1)
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	return max(len(v.buildContent())-v.visibleLines(), 0)
}

// buildContent builds the content lines for display.
func (v *View) buildContent() []string {
	if v.document == nil {
		return nil
	}
	d := v.document

	lines := []string{
		formatField("ID", d.ID),
		formatField("Title", d.Title),
		formatField("Filename", d.Filename),
		formatField("Type", d.ContentType),
		formatField("Size", fmt.Sprintf("%d bytes", d.SizeBytes)),
		formatField("Characters", fmt.Sprintf("%d", len([]rune(d.Content)))),
	}
	if len(d.Pages) > 0 {
		lines = append(lines, formatField("Pages", fmt.Sprintf("%d", len(d.Pages))))
	}
	if !d.CreatedAt.IsZero() {
		lines = append(lines, formatField("Created", d.CreatedAt.Format("2006-01-02 15:04:05")))
	}

	lines = append(lines, "", "Index:")
	if v.status == nil {
		return append(lines, "  status: unavailable")
	}

	s := v.status
	if !s.Chunked {
		return append(lines, "  chunked: no")
	}
	lines = append(lines,
		fmt.Sprintf("  chunks: %d", s.ChunkCount),
		fmt.Sprintf("  embedded: %d", s.Embedded))
	if s.Model != "" {
		lines = append(lines, "  model: "+s.Model)
	}
	if s.Stale {
		lines = append(lines, "  stale: rebuilt on next index")
	}
	return lines
}

func formatField(label, value string) string {
	return fmt.Sprintf("%-12s %s", label+":", value)
}

// View renders the document details view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Document Details"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 0), 60)))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.document == nil {
		b.WriteString(v.styles.Muted.Render("No document details available"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	lines := v.buildContent()
	visibleLines := v.visibleLines()
	for i := v.scrollOffset; i < len(lines) && i < v.scrollOffset+visibleLines; i++ {
		b.WriteString(v.renderLine(lines[i]))
		b.WriteString("\n")
	}

	if len(lines) > visibleLines {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleLines, len(lines)),
			len(lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderLine(line string) string {
	if line == "Index:" {
		return v.styles.Subtitle.Render(line)
	}
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return v.styles.Normal.Render(line)
	}
	if strings.HasPrefix(line, "  ") {
		return v.styles.Muted.Render(label+":") + v.styles.Normal.Render(value)
	}
	return v.styles.Subtitle.Render(label+":") + v.styles.Normal.Render(value)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] scroll  [a] ask  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Document returns the current document.
func (v *View) Document() *domain.Document {
	return v.document
}

// Status returns the current index status.
func (v *View) Status() *domain.IndexStatus {
	return v.status
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
