// Package doccontent provides the document content view component for the TUI.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
)

// ErrNoDocumentService is returned when the document service is not available.
var ErrNoDocumentService = errors.New("document service not available")

// chunksLoaded carries the current chunk set of the shown document.
type chunksLoaded struct {
	set *domain.ChunkSet
	err error
}

// View shows the extracted text of a document, or its chunks.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	ctx             context.Context

	document     *domain.Document
	content      string
	chunks       *domain.ChunkSet
	showChunks   bool
	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
}

// NewView creates a new document content view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		ctx:             context.Background(),
		width:           80,
		height:          24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetDocument sets the document and loads its content.
func (v *View) SetDocument(doc *domain.Document) tea.Cmd {
	v.document = doc
	v.content = ""
	v.chunks = nil
	v.showChunks = false
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
	return v.loadContent()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// loadContent returns a command that loads the document text.
func (v *View) loadContent() tea.Cmd {
	ctx := v.ctx
	doc := v.document
	return func() tea.Msg {
		if doc == nil || v.documentService == nil {
			return messages.DocumentContentLoaded{Err: ErrNoDocumentService}
		}

		full, err := v.documentService.Get(ctx, doc.ID)
		if err != nil {
			return messages.DocumentContentLoaded{DocumentID: doc.ID, Err: err}
		}
		return messages.DocumentContentLoaded{DocumentID: doc.ID, Content: full.Content}
	}
}

// loadChunks returns a command that loads the document's chunk set.
func (v *View) loadChunks() tea.Cmd {
	ctx := v.ctx
	doc := v.document
	return func() tea.Msg {
		if doc == nil || v.documentService == nil {
			return chunksLoaded{err: ErrNoDocumentService}
		}
		set, err := v.documentService.Chunks(ctx, doc.ID)
		return chunksLoaded{set: set, err: err}
	}
}

// Update handles messages for the document content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentContentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.content = msg.Content
		v.err = nil
		v.wrapContent()
		return v, nil

	case chunksLoaded:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			v.showChunks = false
			return v, nil
		}
		v.chunks = msg.set
		v.err = nil
		v.scrollOffset = 0
		v.wrapContent()
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
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "t":
		v.showChunks = !v.showChunks
		v.scrollOffset = 0
		if v.showChunks && v.chunks == nil {
			v.loading = true
			return v, v.loadChunks()
		}
		v.wrapContent()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	}

	return v, nil
}

// source returns the raw lines for the current mode.
func (v *View) source() []string {
	if !v.showChunks {
		if v.content == "" {
			return nil
		}
		return strings.Split(v.content, "\n")
	}
	if v.chunks == nil {
		return nil
	}

	var out []string
	for _, c := range v.chunks.Chunks {
		header := fmt.Sprintf("── chunk %d  [%d:%d]", c.Index, c.Start, c.End)
		if c.Page != nil {
			header += fmt.Sprintf("  page %d", *c.Page)
		}
		out = append(out, header)
		out = append(out, strings.Split(c.Content, "\n")...)
		out = append(out, "")
	}
	return out
}

// wrapContent wraps the current lines to fit the view width.
func (v *View) wrapContent() {
	raw := v.source()
	if len(raw) == 0 {
		v.lines = nil
		return
	}

	contentWidth := max(v.width-4, 20)
	v.lines = make([]string, 0, len(raw))
	for _, line := range raw {
		runes := []rune(line)
		for len(runes) > contentWidth {
			v.lines = append(v.lines, string(runes[:contentWidth]))
			runes = runes[contentWidth:]
		}
		v.lines = append(v.lines, string(runes))
	}
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Reserve lines for title, separator, help and padding
	return max(v.height-6, 1)
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the document content view.
func (v *View) View() string {
	var b strings.Builder

	title := "Document Content"
	if v.document != nil {
		title = v.document.Title
		if title == "" {
			title = v.document.ID
		}
	}
	if v.showChunks {
		title += " · chunks"
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 0), 60)))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if len(v.lines) == 0 {
		b.WriteString(v.styles.Muted.Render("(No content)"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	visibleLines := v.visibleLines()
	for i := v.scrollOffset; i < len(v.lines) && i < v.scrollOffset+visibleLines; i++ {
		b.WriteString(v.styles.Normal.Render(v.lines[i]))
		b.WriteString("\n")
	}

	if len(v.lines) > visibleLines {
		b.WriteString("\n")
		percentage := 0
		if v.maxScrollOffset() > 0 {
			percentage = v.scrollOffset * 100 / v.maxScrollOffset()
		}
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			percentage,
			v.scrollOffset+1,
			min(v.scrollOffset+visibleLines, len(v.lines)),
			len(v.lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [t] text/chunks  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.wrapContent()
}

// Document returns the current document.
func (v *View) Document() *domain.Document {
	return v.document
}

// Content returns the document content.
func (v *View) Content() string {
	return v.content
}

// ShowingChunks reports whether chunk boundaries are shown instead of the text.
func (v *View) ShowingChunks() bool {
	return v.showChunks
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Lines returns the wrapped lines for the current mode.
func (v *View) Lines() []string {
	return v.lines
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
