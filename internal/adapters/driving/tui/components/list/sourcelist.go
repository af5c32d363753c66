// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// SourceList displays the retrieved sources of an answer in a navigable
// list. Sources the answer cites are marked.
type SourceList struct {
	sources  []domain.SourceView
	cited    map[string]bool
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		sources:  nil,
		selected: 0,
		styles:   s,
		width:    80,
		height:   10,
	}
}

// Init initialises the source list.
func (r *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			r.MoveUp()
		case tea.KeyDown:
			r.MoveDown()
		default:
			// Handle other keys
		}
		switch msg.String() {
		case "k":
			r.MoveUp()
		case "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the source list.
func (r *SourceList) View() string {
	if len(r.sources) == 0 {
		return r.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(r.sources)*2+2)

	header := r.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(r.sources)))
	lines = append(lines, header, "")

	// Each source takes two lines.
	visibleCount := (r.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(r.sources))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderSource(i, &r.sources[i]))
	}

	return strings.Join(lines, "\n")
}

// renderSource formats a single source with its preview.
func (r *SourceList) renderSource(index int, src *domain.SourceView) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	marker := " "
	if r.cited[src.ChunkID] {
		marker = "*"
	}

	location := fmt.Sprintf("chunk %d", src.ChunkIndex)
	if src.Page != nil {
		location += fmt.Sprintf(", page %d", *src.Page)
	}
	score := fmt.Sprintf("%.3f", src.Score)

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(fmt.Sprintf("%s%-4s%s %s  %s", indicator, src.Ref, marker, location, score))
	} else {
		titleLine = r.styles.Normal.Render(indicator) +
			r.styles.Citation.Render(fmt.Sprintf("%-4s", src.Ref)) +
			r.styles.Normal.Render(marker+" "+location+"  ") +
			r.styles.Muted.Render(score)
	}

	maxPreview := r.width - 6
	if maxPreview < 20 {
		maxPreview = 20
	}
	previewLine := r.styles.Muted.Render("    " + domain.Preview(src.Preview, maxPreview))

	return titleLine + "\n" + previewLine
}

// SetSources replaces the list contents. Citations mark which sources the
// answer actually used.
func (r *SourceList) SetSources(sources []domain.SourceView, citations []domain.CitationView) {
	r.sources = sources
	r.cited = make(map[string]bool, len(citations))
	for _, c := range citations {
		r.cited[c.ChunkID] = true
	}
	r.selected = 0
}

// Sources returns the current sources.
func (r *SourceList) Sources() []domain.SourceView {
	return r.sources
}

// IsCited reports whether the source with the given chunk ID is cited.
func (r *SourceList) IsCited(chunkID string) bool {
	return r.cited[chunkID]
}

// Selected returns the index of the selected source.
func (r *SourceList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *SourceList) SetSelected(index int) {
	if index >= 0 && index < len(r.sources) {
		r.selected = index
	}
}

// SelectedSource returns the currently selected source, or nil if none.
func (r *SourceList) SelectedSource() *domain.SourceView {
	if len(r.sources) == 0 || r.selected < 0 || r.selected >= len(r.sources) {
		return nil
	}
	return &r.sources[r.selected]
}

// MoveUp moves selection up.
func (r *SourceList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *SourceList) MoveDown() {
	if r.selected < len(r.sources)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *SourceList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Width returns the current width.
func (r *SourceList) Width() int {
	return r.width
}

// Height returns the current height.
func (r *SourceList) Height() int {
	return r.height
}

// Count returns the number of sources.
func (r *SourceList) Count() int {
	return len(r.sources)
}

// IsEmpty returns whether the list is empty.
func (r *SourceList) IsEmpty() bool {
	return len(r.sources) == 0
}
