// Package documents provides the documents list view component for the TUI.
package documents

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

// ErrNoIndexService is returned when the index service is not available.
var ErrNoIndexService = errors.New("index service not available")

// ActionOption represents a document action.
type ActionOption int

const (
	ActionAsk ActionOption = iota
	ActionShowContent
	ActionShowDetails
	ActionIndex
	ActionRemove
	ActionCancel
)

var actionLabels = []struct {
	action ActionOption
	label  string
}{
	{ActionAsk, "Ask a Question"},
	{ActionShowContent, "Show Content"},
	{ActionShowDetails, "Show Details"},
	{ActionIndex, "Index (chunk and embed)"},
	{ActionRemove, "Remove"},
	{ActionCancel, "Cancel"},
}

// View is the documents list view.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	indexService    driving.IndexService
	ctx             context.Context

	documents    []domain.Document
	selected     int
	width        int
	height       int
	ready        bool
	err          error
	notice       string
	loading      bool
	showingMenu  bool
	menuSelected ActionOption
	scrollOffset int
}

// NewView creates a new documents view. indexService may be nil, in
// which case the index action reports an error.
func NewView(s *styles.Styles, documentService driving.DocumentService, indexService driving.IndexService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		indexService:    indexService,
		ctx:             context.Background(),
		documents:       []domain.Document{},
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load resets the view and returns a command that lists all documents.
func (v *View) Load() tea.Cmd {
	v.selected = 0
	v.scrollOffset = 0
	v.err = nil
	v.notice = ""
	v.showingMenu = false
	v.loading = true
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	ctx := v.ctx
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		docs, err := v.documentService.List(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.showingMenu {
			return v.handleMenuKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.documents = msg.Documents
		v.err = nil
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.DocumentIndexed:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		if msg.Status != nil {
			v.notice = fmt.Sprintf("Indexed %d of %d chunks", msg.Status.Embedded, msg.Status.ChunkCount)
		}
		return v, nil

	case messages.DocumentRemoved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Removed " + msg.DocumentID
		return v, v.loadDocuments()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses in list mode.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if len(v.documents) > 0 {
			v.showingMenu = true
			v.menuSelected = ActionAsk
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "r":
		v.loading = true
		return v, v.loadDocuments()
	}

	return v, nil
}

// handleMenuKeyMsg handles key presses in action menu mode.
func (v *View) handleMenuKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.menuSelected > ActionAsk {
			v.menuSelected--
		}
	case "down", "j":
		if v.menuSelected < ActionCancel {
			v.menuSelected++
		}
	case "enter":
		return v.handleMenuSelect()
	case "esc":
		v.showingMenu = false
	}

	return v, nil
}

// handleMenuSelect runs the selected action on the selected document.
func (v *View) handleMenuSelect() (*View, tea.Cmd) {
	v.showingMenu = false
	if v.selected >= len(v.documents) {
		return v, nil
	}

	doc := v.documents[v.selected]
	v.notice = ""

	switch v.menuSelected {
	case ActionAsk:
		return v, func() tea.Msg {
			return messages.AskDocument{Document: doc}
		}
	case ActionShowContent:
		return v, func() tea.Msg {
			return messages.DocumentSelected{Document: doc}
		}
	case ActionShowDetails:
		return v, v.loadDocDetails(doc.ID)
	case ActionIndex:
		v.loading = true
		return v, v.indexDocument(doc.ID)
	case ActionRemove:
		return v, v.removeDocument(doc.ID)
	}

	return v, nil
}

// loadDocDetails returns a command that loads a document and its index status.
func (v *View) loadDocDetails(docID string) tea.Cmd {
	ctx := v.ctx
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentDetailsLoaded{Err: ErrNoDocumentService}
		}

		doc, err := v.documentService.Get(ctx, docID)
		if err != nil {
			return messages.DocumentDetailsLoaded{Err: err}
		}

		var status *domain.IndexStatus
		if v.indexService != nil {
			status, err = v.indexService.Status(ctx, docID)
		}
		return messages.DocumentDetailsLoaded{Document: doc, Status: status, Err: err}
	}
}

// indexDocument returns a command that chunks then embeds the document.
func (v *View) indexDocument(docID string) tea.Cmd {
	ctx := v.ctx
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentIndexed{DocumentID: docID, Err: ErrNoDocumentService}
		}
		if v.indexService == nil {
			return messages.DocumentIndexed{DocumentID: docID, Err: ErrNoIndexService}
		}

		if _, err := v.documentService.Chunk(ctx, docID); err != nil {
			return messages.DocumentIndexed{DocumentID: docID, Err: err}
		}
		if _, err := v.indexService.Embed(ctx, docID); err != nil {
			return messages.DocumentIndexed{DocumentID: docID, Err: err}
		}
		status, err := v.indexService.Status(ctx, docID)
		return messages.DocumentIndexed{DocumentID: docID, Status: status, Err: err}
	}
}

// removeDocument returns a command that deletes the document.
func (v *View) removeDocument(docID string) tea.Cmd {
	ctx := v.ctx
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentRemoved{DocumentID: docID, Err: ErrNoDocumentService}
		}
		err := v.documentService.Delete(ctx, docID)
		return messages.DocumentRemoved{DocumentID: docID, Err: err}
	}
}

// adjustScroll adjusts the scroll offset to keep the selected item visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of items that can be displayed.
func (v *View) visibleItemCount() int {
	// Reserve lines for title, notice, help and padding
	return max(v.height-9, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Working..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if len(v.documents) == 0 {
		b.WriteString(v.styles.Muted.Render("No documents yet. Add one with: docdetective add <file>"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.showingMenu {
		b.WriteString(v.renderActionMenu())
		return b.String()
	}

	visibleItems := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visibleItems; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i]))
		b.WriteString("\n")
	}

	if len(v.documents) > visibleItems {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleItems, len(v.documents)),
			len(v.documents))))
	}

	if v.notice != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Success.Render(v.notice))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderDocument renders a single document line.
func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	title := doc.Title
	if title == "" {
		title = doc.ID
	}

	maxTitleLen := max(v.width/2-4, 10)
	if len([]rune(title)) > maxTitleLen {
		title = string([]rune(title)[:maxTitleLen-3]) + "..."
	}

	meta := fmt.Sprintf("%s  %s", formatSize(doc.SizeBytes), doc.ContentType)
	if !doc.CreatedAt.IsZero() {
		meta += "  " + doc.CreatedAt.Format("2006-01-02")
	}

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitleLen, title, meta))
	}

	return v.styles.Normal.Render(indicator) +
		v.styles.Normal.Render(fmt.Sprintf("%-*s  ", maxTitleLen, title)) +
		v.styles.Muted.Render(meta)
}

// renderActionMenu renders the action menu overlay.
func (v *View) renderActionMenu() string {
	var b strings.Builder

	if v.selected < len(v.documents) {
		doc := v.documents[v.selected]
		title := doc.Title
		if title == "" {
			title = doc.ID
		}
		b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Actions for: %s", title)))
		b.WriteString("\n\n")
	}

	for _, opt := range actionLabels {
		if v.menuSelected == opt.action {
			b.WriteString(v.styles.Selected.Render("> " + opt.label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + opt.label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] select  [esc] cancel"))

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [enter] actions  [r] reload  [esc] back")
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// IsShowingMenu returns true if the action menu is visible.
func (v *View) IsShowingMenu() bool {
	return v.showingMenu
}

// IsLoading reports whether a list or index operation is in flight.
func (v *View) IsLoading() bool {
	return v.loading
}

// Notice returns the last success message.
func (v *View) Notice() string {
	return v.notice
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
