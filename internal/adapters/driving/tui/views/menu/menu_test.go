package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
)

func TestNewView(t *testing.T) {
	s := styles.DefaultStyles()

	view := NewView(s)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Len(t, view.items, 5)
	assert.Equal(t, 0, view.selected)
	assert.Equal(t, 80, view.width)
	assert.Equal(t, 24, view.height)
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil)

	require.NotNil(t, view)
	// Should create default styles
	assert.NotNil(t, view.styles)
}

func TestView_Init(t *testing.T) {
	view := NewView(nil)

	cmd := view.Init()

	assert.Nil(t, cmd)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil)

	msg := tea.WindowSizeMsg{Width: 100, Height: 50}
	updated, cmd := view.Update(msg)

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 100, view.width)
	assert.Equal(t, 50, view.height)
}

func TestView_Update_KeyMsg_NavigateDown(t *testing.T) {
	view := NewView(nil)
	view.selected = 0

	// Test down key
	msg := tea.KeyMsg{Type: tea.KeyDown}
	view.Update(msg)
	assert.Equal(t, 1, view.selected)

	// Test j key
	msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	view.Update(msg)
	assert.Equal(t, 2, view.selected)

	// Navigate to the last item
	view.Update(msg)
	assert.Equal(t, 3, view.selected)
	view.Update(msg)
	assert.Equal(t, 4, view.selected)

	// Test boundary - can't go past last item
	view.Update(msg)
	assert.Equal(t, 4, view.selected)
}

func TestView_Update_KeyMsg_NavigateUp(t *testing.T) {
	view := NewView(nil)
	view.selected = 3

	// Test up key
	msg := tea.KeyMsg{Type: tea.KeyUp}
	view.Update(msg)
	assert.Equal(t, 2, view.selected)

	// Test k key
	msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}
	view.Update(msg)
	assert.Equal(t, 1, view.selected)

	view.Update(msg)
	assert.Equal(t, 0, view.selected)

	// Test boundary - can't go before first item
	view.Update(msg)
	assert.Equal(t, 0, view.selected)
}

func TestView_Update_KeyMsg_Enter_ViewChange(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		want     messages.ViewType
	}{
		{"ask", 0, messages.ViewAsk},
		{"documents", 1, messages.ViewDocuments},
		{"settings", 2, messages.ViewSettings},
		{"help", 3, messages.ViewHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewView(nil)
			view.selected = tt.selected

			_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

			require.NotNil(t, cmd)
			changed, ok := cmd().(messages.ViewChanged)
			require.True(t, ok)
			assert.Equal(t, tt.want, changed.View)
		})
	}
}

func TestView_Update_KeyMsg_Enter_Quit(t *testing.T) {
	view := NewView(nil)
	view.selected = 4 // Quit

	msg := tea.KeyMsg{Type: tea.KeyEnter}
	_, cmd := view.Update(msg)

	// Should return tea.Quit
	require.NotNil(t, cmd)
}

func TestView_Update_KeyMsg_Q(t *testing.T) {
	view := NewView(nil)

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	_, cmd := view.Update(msg)

	// Should return tea.Quit
	require.NotNil(t, cmd)
}

func TestView_View_NotReady(t *testing.T) {
	view := NewView(nil)
	view.ready = false

	output := view.View()

	assert.Contains(t, output, "Initialising")
}

func TestView_View_Ready(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 24)

	output := view.View()

	assert.Contains(t, output, "docdetective")
	assert.Contains(t, output, "Cited answers from your documents")
	assert.Contains(t, output, "No document selected")
	assert.Contains(t, output, "> Ask")
	assert.Contains(t, output, "Documents")
	assert.Contains(t, output, "Help")
	assert.Contains(t, output, "Quit")
}

func TestView_View_CurrentDocument(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 24)

	view.SetCurrentDocument("handbook.pdf")

	output := view.View()
	assert.Contains(t, output, "handbook.pdf")
	assert.NotContains(t, output, "No document selected")
}

func TestView_SetDimensions(t *testing.T) {
	view := NewView(nil)
	view.ready = false

	view.SetDimensions(120, 60)

	assert.Equal(t, 120, view.width)
	assert.Equal(t, 60, view.height)
	assert.True(t, view.ready)
}

func TestView_Selected(t *testing.T) {
	view := NewView(nil)
	view.selected = 2

	assert.Equal(t, 2, view.Selected())
}

func TestMenuItem_Properties(t *testing.T) {
	items := NewView(nil).Items()

	require.Len(t, items, 5)
	assert.Equal(t, Item{Label: "Ask", View: messages.ViewAsk}, items[0])
	assert.Equal(t, Item{Label: "Documents", View: messages.ViewDocuments}, items[1])
	assert.Equal(t, Item{Label: "Settings", View: messages.ViewSettings}, items[2])
	assert.Equal(t, Item{Label: "Help", View: messages.ViewHelp}, items[3])
	assert.Equal(t, "Quit", items[4].Label)
	assert.True(t, items[4].Quit)
}
