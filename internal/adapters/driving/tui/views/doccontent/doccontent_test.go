package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	GetFunc    func(ctx context.Context, documentID string) (*domain.Document, error)
	ChunksFunc func(ctx context.Context, documentID string) (*domain.ChunkSet, error)
}

func (m *MockDocumentService) Ingest(context.Context, *domain.RawDocument) (*domain.Document, error) {
	return nil, nil
}

func (m *MockDocumentService) AddText(context.Context, string, string, []domain.Page) (*domain.Document, error) {
	return nil, nil
}

func (m *MockDocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, documentID)
	}
	return &domain.Document{ID: documentID}, nil
}

func (m *MockDocumentService) List(context.Context) ([]domain.Document, error) { return nil, nil }
func (m *MockDocumentService) Delete(context.Context, string) error            { return nil }

func (m *MockDocumentService) Find(context.Context, string, int) ([]domain.Document, error) {
	return nil, nil
}

func (m *MockDocumentService) Chunk(context.Context, string) (*domain.ChunkSet, error) {
	return nil, nil
}

func (m *MockDocumentService) Chunks(ctx context.Context, documentID string) (*domain.ChunkSet, error) {
	if m.ChunksFunc != nil {
		return m.ChunksFunc(ctx, documentID)
	}
	return nil, domain.ErrNotChunked
}

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

// loadedView returns a view of height 16 (10 visible lines) showing content.
func loadedView(content string) *View {
	view := NewView(nil, &MockDocumentService{})
	view.SetDimensions(80, 16)
	view.SetDocument(&domain.Document{ID: "doc-1", Title: "notes.txt"})
	view, _ = view.Update(messages.DocumentContentLoaded{DocumentID: "doc-1", Content: content})
	return view
}

func press(view *View, keys ...string) *View {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "pgdown":
			msg = tea.KeyMsg{Type: tea.KeyPgDown}
		case "pgup":
			msg = tea.KeyMsg{Type: tea.KeyPgUp}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		view, _ = view.Update(msg)
	}
	return view
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Nil(t, view.Document())
	assert.Nil(t, view.Init())
}

func TestView_SetDocument_LoadsContent(t *testing.T) {
	docs := &MockDocumentService{GetFunc: func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{ID: id, Content: "The capital of France is Paris."}, nil
	}}
	view := NewView(nil, docs)

	cmd := view.SetDocument(&domain.Document{ID: "doc-1", Title: "france.txt"})
	require.NotNil(t, cmd)
	assert.Contains(t, view.View(), "Loading...")

	msg, ok := cmd().(messages.DocumentContentLoaded)
	require.True(t, ok)
	assert.Equal(t, "doc-1", msg.DocumentID)

	view, _ = view.Update(msg)
	assert.Equal(t, "The capital of France is Paris.", view.Content())
	assert.Contains(t, view.View(), "france.txt")
	assert.Contains(t, view.View(), "The capital of France is Paris.")
}

func TestView_SetDocument_GetError(t *testing.T) {
	docs := &MockDocumentService{GetFunc: func(context.Context, string) (*domain.Document, error) {
		return nil, domain.ErrNotFound
	}}
	view := NewView(nil, docs)

	cmd := view.SetDocument(&domain.Document{ID: "gone"})
	view, _ = view.Update(cmd())

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
	assert.Contains(t, view.View(), "Error: not found")
}

func TestView_LoadContent_NoService(t *testing.T) {
	view := NewView(nil, nil)

	msg := view.SetDocument(&domain.Document{ID: "doc-1"})().(messages.DocumentContentLoaded)

	assert.ErrorIs(t, msg.Err, ErrNoDocumentService)
}

func TestView_Scrolling(t *testing.T) {
	view := loadedView(numberedLines(30))
	require.Len(t, view.Lines(), 30)

	view = press(view, "down", "j")
	assert.Equal(t, 2, view.ScrollOffset())

	view = press(view, "up", "k", "k")
	assert.Equal(t, 0, view.ScrollOffset())

	view = press(view, "pgdown")
	assert.Equal(t, 10, view.ScrollOffset())

	view = press(view, "pgdown", "pgdown")
	assert.Equal(t, 20, view.ScrollOffset(), "clamped to the last page")

	view = press(view, "pgup")
	assert.Equal(t, 10, view.ScrollOffset())

	view = press(view, "G")
	assert.Equal(t, 20, view.ScrollOffset())
	view = press(view, "down")
	assert.Equal(t, 20, view.ScrollOffset())

	view = press(view, "g")
	assert.Equal(t, 0, view.ScrollOffset())
}

func TestView_View_ScrollIndicator(t *testing.T) {
	view := loadedView(numberedLines(30))

	assert.Contains(t, view.View(), "[0%] Line 1-10 of 30")

	view = press(view, "G")
	assert.Contains(t, view.View(), "[100%] Line 21-30 of 30")
}

func TestView_Esc_ReturnsToDocuments(t *testing.T) {
	view := loadedView("text")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewDocuments}, cmd())
}

func TestView_ToggleChunks(t *testing.T) {
	page := 2
	docs := &MockDocumentService{ChunksFunc: func(_ context.Context, id string) (*domain.ChunkSet, error) {
		return &domain.ChunkSet{DocumentID: id, Chunks: []domain.Chunk{
			{ID: "doc-1:0", Index: 0, Start: 0, End: 31, Content: "The capital of France is Paris."},
			{ID: "doc-1:1", Index: 1, Start: 26, End: 60, Page: &page, Content: "Paris. The Eiffel Tower is in Paris."},
		}}, nil
	}}
	view := NewView(nil, docs)
	view.SetDimensions(80, 40)
	view.SetDocument(&domain.Document{ID: "doc-1", Title: "france.txt"})
	view, _ = view.Update(messages.DocumentContentLoaded{DocumentID: "doc-1", Content: "full text"})

	view, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	require.NotNil(t, cmd)
	assert.True(t, view.ShowingChunks())

	view, _ = view.Update(cmd())
	output := view.View()
	assert.Contains(t, output, "france.txt · chunks")
	assert.Contains(t, output, "── chunk 0  [0:31]")
	assert.Contains(t, output, "── chunk 1  [26:60]  page 2")
	assert.NotContains(t, output, "full text")

	view, cmd = view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	assert.Nil(t, cmd, "chunks are cached")
	assert.False(t, view.ShowingChunks())
	assert.Contains(t, view.View(), "full text")
}

func TestView_ToggleChunks_NotChunked(t *testing.T) {
	view := loadedView("text")

	view, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	view, _ = view.Update(cmd())

	assert.ErrorIs(t, view.Err(), domain.ErrNotChunked)
	assert.False(t, view.ShowingChunks())
}

func TestView_WrapContent(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		content string
		want    []string
	}{
		{"short line", 80, "hello", []string{"hello"}},
		{"exact width", 24, strings.Repeat("a", 20), []string{strings.Repeat("a", 20)}},
		{"one over", 24, strings.Repeat("a", 21), []string{strings.Repeat("a", 20), "a"}},
		{"minimum width", 5, strings.Repeat("b", 25), []string{strings.Repeat("b", 20), "bbbbb"}},
		{"multibyte runes", 24, strings.Repeat("é", 21), []string{strings.Repeat("é", 20), "é"}},
		{"blank lines kept", 80, "a\n\nb", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewView(nil, nil)
			view.SetDimensions(tt.width, 24)
			view.content = tt.content

			view.wrapContent()

			assert.Equal(t, tt.want, view.Lines())
		})
	}
}

func TestView_View_Empty(t *testing.T) {
	view := loadedView("")

	assert.Contains(t, view.View(), "(No content)")
}

func TestView_ErrorOccurred(t *testing.T) {
	view := loadedView("text")

	view, _ = view.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, view.Err(), "boom")
}

func TestView_VisibleLines(t *testing.T) {
	view := NewView(nil, nil)

	view.SetDimensions(80, 3)
	assert.Equal(t, 1, view.visibleLines())

	view.SetDimensions(80, 30)
	assert.Equal(t, 24, view.visibleLines())
}
