package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/keymap"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/styles"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/views/ask"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/views/doccontent"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/views/docdetails"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/views/documents"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/views/menu"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/views/settings"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	menuView       *menu.View
	askView        *ask.View
	documentsView  *documents.View
	docContentView *doccontent.View
	docDetailsView *docdetails.View
	settingsView   *settings.View

	// selectedDocument is the document questions are asked about.
	selectedDocument *domain.Document

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		menuView:       menu.NewView(s),
		askView:        ask.NewView(s, km, ports.Answer, ports.Settings),
		documentsView:  documents.NewView(s, ports.Document, ports.Index),
		docContentView: doccontent.NewView(s, ports.Document),
		docDetailsView: docdetails.NewView(s),
		settingsView:   settings.NewView(s, ports.Settings),
		currentView:    messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and every view that calls services.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.docContentView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("docdetective"),
	)
}

// Update implements tea.Model.
//
//nolint:gocognit,gocyclo,funlen // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.AskDocument:
		a.selectDocument(msg.Document)
		a.currentView = messages.ViewAsk
		return a, a.askView.Init()

	case messages.AnswerCompleted:
		a.askView, cmd = a.askView.Update(msg)
		a.err = a.askView.Err()
		return a, cmd

	case messages.DocumentSelected:
		a.currentView = messages.ViewDocContent
		return a, a.docContentView.SetDocument(&msg.Document)

	case messages.DocumentsLoaded, messages.DocumentIndexed:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.DocumentRemoved:
		if msg.Err == nil && a.selectedDocument != nil && a.selectedDocument.ID == msg.DocumentID {
			a.selectedDocument = nil
			a.askView.SetDocument(nil)
			a.menuView.SetCurrentDocument("")
		}
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.DocumentContentLoaded:
		a.docContentView, cmd = a.docContentView.Update(msg)
		return a, cmd

	case messages.DocumentDetailsLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			a.documentsView, cmd = a.documentsView.Update(messages.ErrorOccurred{Err: msg.Err})
			return a, cmd
		}
		a.docDetailsView, cmd = a.docDetailsView.Update(msg)
		a.currentView = messages.ViewDocDetails
		return a, cmd

	case messages.SettingsLoaded, messages.SettingsSaved:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward passes a message to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocContent:
		a.docContentView, cmd = a.docContentView.Update(msg)
	case messages.ViewDocDetails:
		a.docDetailsView, cmd = a.docDetailsView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
		// Help is static
	}
	return cmd
}

// switchTo activates a view and runs its initial command.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.currentView = view
	switch view {
	case messages.ViewAsk:
		return a.askView.Init()
	case messages.ViewDocuments:
		return a.documentsView.Load()
	case messages.ViewSettings:
		a.settingsView.Reset()
		return a.settingsView.Init()
	case messages.ViewMenu, messages.ViewHelp, messages.ViewDocContent, messages.ViewDocDetails:
		// No initialisation needed
	}
	return nil
}

// selectDocument makes doc the target of questions.
func (a *App) selectDocument(doc domain.Document) {
	a.selectedDocument = &doc
	a.askView.SetDocument(&doc)

	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	a.menuView.SetCurrentDocument(title)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewMenu:
		return a.menuView.View()
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewDocContent:
		return a.docContentView.View()
	case messages.ViewDocDetails:
		return a.docDetailsView.View()
	case messages.ViewSettings:
		return a.settingsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Documents:
  enter       Actions (ask, content, details, index, remove)
  r           Reload

Ask:
  (type)      Enter a question
  enter       Ask
  n           New question
  s           Show or hide sources
  j/k, ↑/↓    Move through sources

Sources marked * are cited by the answer.

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// SelectedDocument returns the document questions are asked about, or nil.
func (a *App) SelectedDocument() *domain.Document {
	return a.selectedDocument
}

// Result returns the last answer shown in the ask view, or nil.
func (a *App) Result() *domain.AnswerResult {
	return a.askView.Result()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.menuView.SetDimensions(width, height)
	a.askView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.docContentView.SetDimensions(width, height)
	a.docDetailsView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
}
