// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/keymap"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady     State = "ready"
	StateAnswering State = "answering"
	StateIndexing  State = "indexing"
	StateError     State = "error"
	StateHelp      State = "help"
	StateAnswered  State = "answered"
)

// Bar displays application status and keybinding hints.
type Bar struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	state       State
	message     string
	sourceCount int
	confidence  domain.ConfidenceLabel
	width       int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles:      s,
		keymap:      km,
		state:       StateReady,
		message:     "",
		sourceCount: 0,
		width:       80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// Bar is mostly passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	// Left side: state/message
	left := s.renderLeft()

	// Right side: keybinding hints
	right := s.renderRight()

	// Calculate padding
	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)
	padding := s.width - leftLen - rightLen
	if padding < 1 {
		padding = 1
	}

	bar := s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)

	return bar
}

// renderLeft renders the left side of the status bar.
func (s *Bar) renderLeft() string {
	switch s.state {
	case StateAnswering:
		return s.styles.Muted.Render("Answering...")
	case StateIndexing:
		return s.styles.Muted.Render("Indexing...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateHelp:
		return s.styles.Normal.Render("Help")
	case StateAnswered:
		left := s.styles.Normal.Render(fmt.Sprintf("%d sources", s.sourceCount))
		if s.confidence != "" {
			left = s.styles.Confidence(s.confidence).Render(string(s.confidence)+" confidence") + "  " + left
		}
		return left
	case StateReady:
		if s.message != "" {
			return s.styles.Normal.Render(s.message)
		}
		return s.styles.Muted.Render("Ready")
	}
	return s.styles.Muted.Render("Ready")
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	var bindings []key.Binding

	// Show different hints based on state
	if s.state == StateAnswered {
		bindings = s.keymap.AnswerHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hint := fmt.Sprintf("%s: %s", h.Key, h.Desc)
		hints = append(hints, hint)
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetAnswer shows the confidence and source count of an answer.
func (s *Bar) SetAnswer(label domain.ConfidenceLabel, sources int) {
	s.state = StateAnswered
	s.confidence = label
	s.sourceCount = sources
}

// SourceCount returns the number of sources of the shown answer.
func (s *Bar) SourceCount() int {
	return s.sourceCount
}

// Confidence returns the confidence label of the shown answer.
func (s *Bar) Confidence() domain.ConfidenceLabel {
	return s.confidence
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.sourceCount = 0
	s.confidence = ""
}
