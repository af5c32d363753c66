// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// QuestionChanged is sent when the question input changes.
type QuestionChanged struct {
	Question string
}

// AnswerRequested is a command to answer a question about a document.
type AnswerRequested struct {
	Query domain.Query
}

// AnswerCompleted carries an answer back to the model.
type AnswerCompleted struct {
	Result *domain.AnswerResult
	Err    error
}

// SourceSelected is sent when a source of an answer is selected.
type SourceSelected struct {
	Index int
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the question input and answer view.
	ViewAsk
	// ViewDocuments lists ingested documents.
	ViewDocuments
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewDocContent shows document content.
	ViewDocContent
	// ViewDocDetails shows document metadata and index status.
	ViewDocDetails
	// ViewSettings is the settings configuration view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	case ViewDocContent:
		return "doc_content"
	case ViewDocDetails:
		return "doc_details"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsLoaded carries the list of documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentSelected signals a document was selected for reading.
type DocumentSelected struct {
	Document domain.Document
}

// AskDocument signals a document was chosen as the target of questions.
type AskDocument struct {
	Document domain.Document
}

// DocumentContentLoaded carries the content of a document.
type DocumentContentLoaded struct {
	DocumentID string
	Content    string
	Err        error
}

// DocumentDetailsLoaded carries a document and its index status.
type DocumentDetailsLoaded struct {
	Document *domain.Document
	Status   *domain.IndexStatus
	Err      error
}

// DocumentIndexed signals chunking and embedding of a document finished.
type DocumentIndexed struct {
	DocumentID string
	Status     *domain.IndexStatus
	Err        error
}

// DocumentRemoved signals a document was deleted.
type DocumentRemoved struct {
	DocumentID string
	Err        error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals settings were saved.
type SettingsSaved struct {
	Err error
}
