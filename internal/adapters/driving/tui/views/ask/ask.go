// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/components/input"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/components/list"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/components/status"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/keymap"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
)

// View asks questions about one document and shows the cited answer with
// its confidence and sources.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.SourceList
	statusbar *status.Bar

	answerService   driving.AnswerService
	settingsService driving.SettingsService
	ctx             context.Context

	document *domain.Document
	result   *domain.AnswerResult

	width       int
	height      int
	ready       bool
	err         error
	focusInput  bool // true = typing a question, false = reading the answer
	showSources bool
}

// NewView creates a new ask view. settingsService may be nil, in which
// case default retrieval settings are used.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
	settingsService driving.SettingsService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:          s,
		keymap:          km,
		input:           input.NewQuestionInput(s),
		list:            list.NewSourceList(s),
		statusbar:       status.NewBar(s, km),
		answerService:   answerService,
		settingsService: settingsService,
		ctx:             context.Background(),
		width:           80,
		height:          24,
		focusInput:      true,
		showSources:     true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetDocument sets the document questions are asked about and clears
// any previous answer.
func (v *View) SetDocument(doc *domain.Document) {
	v.document = doc
	v.Reset()
}

// Document returns the current document, or nil.
func (v *View) Document() *domain.Document {
	return v.document
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if msg.Type == tea.KeyEnter && v.focusInput {
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		if v.document == nil {
			v.setError(ErrNoDocument)
			return v, nil
		}
		v.err = nil
		v.statusbar.SetState(status.StateAnswering)
		return v, v.performAnswer(question)
	}

	if v.focusInput {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.NewQuestion):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case keymap.Matches(msg.String(), v.keymap.Sources):
		v.showSources = !v.showSources
		return v, nil
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// performAnswer asks the answer service in the background.
func (v *View) performAnswer(question string) tea.Cmd {
	q := domain.Query{DocumentID: v.document.ID, Text: question}
	defaults := v.retrievalDefaults()
	q.TopK = defaults.TopK
	q.MaxSources = defaults.MaxSources
	ctx := v.ctx

	return func() tea.Msg {
		if v.answerService == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}
		result, err := v.answerService.Answer(ctx, q)
		return messages.AnswerCompleted{Result: result, Err: err}
	}
}

func (v *View) retrievalDefaults() domain.RetrievalSettings {
	if v.settingsService != nil {
		if s, err := v.settingsService.Get(); err == nil && s != nil {
			return s.Retrieval
		}
	}
	return domain.DefaultRetrievalSettings()
}

// handleAnswerCompleted shows an answer or its error.
func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.result = msg.Result
	v.list.SetSources(msg.Result.Sources, msg.Result.Citations)
	v.statusbar.SetAnswer(msg.Result.ConfidenceLabel, len(msg.Result.Sources))

	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)

	title := "Ask"
	if v.document != nil {
		title = "Ask · " + v.document.Title
	}
	sections = append(sections, v.styles.Title.Render(title), "", v.input.View(), "")

	if v.document == nil {
		sections = append(sections, v.styles.Muted.Render("Choose a document from Documents to ask about it."), "")
	}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.result != nil {
		sections = append(sections, v.renderAnswer(), "")
		if v.showSources {
			sections = append(sections, v.list.View())
		}
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderAnswer renders the answer text with its confidence and citations.
func (v *View) renderAnswer() string {
	r := v.result
	wrap := v.styles.Normal.Width(max(v.width-2, 20))

	lines := []string{
		wrap.Render(r.AnswerText),
		"",
		v.styles.Muted.Render("Confidence: ") +
			v.styles.Confidence(r.ConfidenceLabel).Render(string(r.ConfidenceLabel)) +
			v.styles.Muted.Render(fmt.Sprintf("  strength %.2f  coverage %.2f", r.Strength, r.Coverage)),
	}

	if len(r.Citations) > 0 {
		refs := make([]string, len(r.Citations))
		for i, c := range r.Citations {
			refs[i] = v.styles.Citation.Render(c.Ref)
		}
		lines = append(lines, v.styles.Muted.Render("Cited: ")+strings.Join(refs, ", "))
	}

	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-14) // header, input, answer and status
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the current question text.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the question text.
func (v *View) SetQuestion(question string) {
	v.input.SetValue(question)
}

// Result returns the last answer, or nil.
func (v *View) Result() *domain.AnswerResult {
	return v.result
}

// SelectedSource returns the selected source of the last answer.
func (v *View) SelectedSource() *domain.SourceView {
	return v.list.SelectedSource()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// SourcesVisible reports whether the source list is shown.
func (v *View) SourcesVisible() bool {
	return v.showSources
}

// Reset returns the view to question input with no answer.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetSources(nil, nil)
	v.result = nil
	v.err = nil
	v.statusbar.Clear()
}
