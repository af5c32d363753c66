// Package menu provides the main navigation menu view for the TUI.
package menu

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
)

// Item represents a single menu option.
type Item struct {
	Label string
	View  messages.ViewType
	Quit  bool // If true, selecting this item quits the app
}

// View represents the main menu view.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	current  string
	width    int
	height   int
	ready    bool
}

// NewView creates a new menu view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles: s,
		items: []Item{
			{Label: "Ask", View: messages.ViewAsk},
			{Label: "Documents", View: messages.ViewDocuments},
			{Label: "Settings", View: messages.ViewSettings},
			{Label: "Help", View: messages.ViewHelp},
			{Label: "Quit", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

// Init initialises the menu view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
			return v, nil

		case "down", "j":
			if v.selected < len(v.items)-1 {
				v.selected++
			}
			return v, nil

		case "enter":
			item := v.items[v.selected]
			if item.Quit {
				return v, tea.Quit
			}
			return v, func() tea.Msg {
				return messages.ViewChanged{View: item.View}
			}

		case "q":
			return v, tea.Quit
		}
	}

	return v, nil
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder

	b.WriteString(v.styles.Title.Render("docdetective"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Subtitle.Render("Cited answers from your documents"))
	b.WriteString("\n")

	if v.current != "" {
		b.WriteString(v.styles.Muted.Render("Document: "))
		b.WriteString(v.current)
	} else {
		b.WriteString(v.styles.Muted.Render("No document selected"))
	}
	b.WriteString("\n\n")

	for i, item := range v.items {
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + item.Label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + item.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Select  [q] Quit"))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// SetCurrentDocument shows which document questions will be asked about.
func (v *View) SetCurrentDocument(title string) {
	v.current = title
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// Items returns the menu items.
func (v *View) Items() []Item {
	return v.items
}
