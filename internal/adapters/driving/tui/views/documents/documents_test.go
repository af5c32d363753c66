package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	ListFunc   func(ctx context.Context) ([]domain.Document, error)
	GetFunc    func(ctx context.Context, documentID string) (*domain.Document, error)
	DeleteFunc func(ctx context.Context, documentID string) error
	ChunkFunc  func(ctx context.Context, documentID string) (*domain.ChunkSet, error)
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

func (m *MockDocumentService) List(ctx context.Context) ([]domain.Document, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []domain.Document{}, nil
}

func (m *MockDocumentService) Delete(ctx context.Context, documentID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, documentID)
	}
	return nil
}

func (m *MockDocumentService) Find(context.Context, string, int) ([]domain.Document, error) {
	return nil, nil
}

func (m *MockDocumentService) Chunk(ctx context.Context, documentID string) (*domain.ChunkSet, error) {
	if m.ChunkFunc != nil {
		return m.ChunkFunc(ctx, documentID)
	}
	return &domain.ChunkSet{DocumentID: documentID}, nil
}

func (m *MockDocumentService) Chunks(context.Context, string) (*domain.ChunkSet, error) {
	return nil, nil
}

// MockIndexService implements driving.IndexService for testing.
type MockIndexService struct {
	EmbedFunc  func(ctx context.Context, documentID string) (*domain.IndexEntry, error)
	StatusFunc func(ctx context.Context, documentID string) (*domain.IndexStatus, error)
}

func (m *MockIndexService) Embed(ctx context.Context, documentID string) (*domain.IndexEntry, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, documentID)
	}
	return &domain.IndexEntry{DocumentID: documentID}, nil
}

func (m *MockIndexService) Status(ctx context.Context, documentID string) (*domain.IndexStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, documentID)
	}
	return &domain.IndexStatus{DocumentID: documentID, Chunked: true, ChunkCount: 3, Embedded: 3}, nil
}

func testDocuments() []domain.Document {
	return []domain.Document{
		{ID: "doc-1", Title: "france.txt", ContentType: "text/plain", SizeBytes: 512, CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "doc-2", Title: "handbook.pdf", ContentType: "application/pdf", SizeBytes: 3 << 20},
	}
}

func loadedView(docs *MockDocumentService, index *MockIndexService) *View {
	var view *View
	if index == nil {
		view = NewView(nil, docs, nil)
	} else {
		view = NewView(nil, docs, index)
	}
	view.SetDimensions(100, 30)
	view, _ = view.Update(messages.DocumentsLoaded{Documents: testDocuments()})
	return view
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// selectAction opens the action menu on the selected document and moves to action.
func selectAction(view *View, action ActionOption) (*View, tea.Cmd) {
	view, _ = view.Update(key("enter"))
	for i := ActionAsk; i < action; i++ {
		view, _ = view.Update(key("down"))
	}
	return view.Update(key("enter"))
}

func TestNewView(t *testing.T) {
	view := NewView(nil, &MockDocumentService{}, &MockIndexService{})

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.False(t, view.ready)
	assert.Empty(t, view.Documents())
	assert.Nil(t, view.Init())
}

func TestView_Load(t *testing.T) {
	docs := &MockDocumentService{ListFunc: func(context.Context) ([]domain.Document, error) {
		return testDocuments(), nil
	}}
	view := NewView(nil, docs, nil)

	cmd := view.Load()
	require.NotNil(t, cmd)
	assert.True(t, view.IsLoading())

	loaded, ok := cmd().(messages.DocumentsLoaded)
	require.True(t, ok)
	require.NoError(t, loaded.Err)

	view, _ = view.Update(loaded)
	assert.False(t, view.IsLoading())
	assert.Len(t, view.Documents(), 2)
}

func TestView_Load_NoService(t *testing.T) {
	view := NewView(nil, nil, nil)

	msg := view.Load()().(messages.DocumentsLoaded)

	assert.ErrorIs(t, msg.Err, ErrNoDocumentService)
}

func TestView_DocumentsLoaded_Error(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetDimensions(80, 24)

	view, _ = view.Update(messages.DocumentsLoaded{Err: errors.New("db locked")})

	assert.EqualError(t, view.Err(), "db locked")
	assert.Contains(t, view.View(), "Error: db locked")
}

func TestView_Navigation(t *testing.T) {
	view := loadedView(&MockDocumentService{}, nil)

	view, _ = view.Update(key("j"))
	assert.Equal(t, 1, view.SelectedIndex())
	view, _ = view.Update(key("j"))
	assert.Equal(t, 1, view.SelectedIndex())
	view, _ = view.Update(key("k"))
	assert.Equal(t, 0, view.SelectedIndex())
	assert.Equal(t, "doc-1", view.SelectedDocument().ID)
}

func TestView_Esc_ReturnsToMenu(t *testing.T) {
	view := loadedView(&MockDocumentService{}, nil)

	_, cmd := view.Update(key("esc"))

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_ActionMenu_Cancel(t *testing.T) {
	view := loadedView(&MockDocumentService{}, nil)

	view, _ = view.Update(key("enter"))
	assert.True(t, view.IsShowingMenu())
	assert.Contains(t, view.View(), "Actions for: france.txt")

	view, _ = view.Update(key("esc"))
	assert.False(t, view.IsShowingMenu())
}

func TestView_Action_Ask(t *testing.T) {
	view := loadedView(&MockDocumentService{}, nil)

	_, cmd := selectAction(view, ActionAsk)

	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.AskDocument)
	require.True(t, ok)
	assert.Equal(t, "doc-1", msg.Document.ID)
}

func TestView_Action_ShowContent(t *testing.T) {
	view := loadedView(&MockDocumentService{}, nil)
	view, _ = view.Update(key("j"))

	_, cmd := selectAction(view, ActionShowContent)

	msg, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "doc-2", msg.Document.ID)
}

func TestView_Action_ShowDetails(t *testing.T) {
	view := loadedView(&MockDocumentService{}, &MockIndexService{})

	_, cmd := selectAction(view, ActionShowDetails)

	msg, ok := cmd().(messages.DocumentDetailsLoaded)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "doc-1", msg.Document.ID)
	require.NotNil(t, msg.Status)
	assert.Equal(t, 3, msg.Status.ChunkCount)
}

func TestView_Action_ShowDetails_WithoutIndexService(t *testing.T) {
	view := loadedView(&MockDocumentService{}, nil)

	_, cmd := selectAction(view, ActionShowDetails)

	msg := cmd().(messages.DocumentDetailsLoaded)
	require.NoError(t, msg.Err)
	assert.Nil(t, msg.Status)
}

func TestView_Action_Index(t *testing.T) {
	var calls []string
	docs := &MockDocumentService{ChunkFunc: func(_ context.Context, id string) (*domain.ChunkSet, error) {
		calls = append(calls, "chunk:"+id)
		return &domain.ChunkSet{DocumentID: id}, nil
	}}
	index := &MockIndexService{EmbedFunc: func(_ context.Context, id string) (*domain.IndexEntry, error) {
		calls = append(calls, "embed:"+id)
		return &domain.IndexEntry{DocumentID: id}, nil
	}}
	view := loadedView(docs, index)

	view, cmd := selectAction(view, ActionIndex)
	assert.True(t, view.IsLoading())

	msg, ok := cmd().(messages.DocumentIndexed)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, []string{"chunk:doc-1", "embed:doc-1"}, calls)

	view, _ = view.Update(msg)
	assert.False(t, view.IsLoading())
	assert.Equal(t, "Indexed 3 of 3 chunks", view.Notice())
	assert.Contains(t, view.View(), "Indexed 3 of 3 chunks")
}

func TestView_Action_Index_ChunkError(t *testing.T) {
	embedded := false
	docs := &MockDocumentService{ChunkFunc: func(context.Context, string) (*domain.ChunkSet, error) {
		return nil, domain.ErrEmptyDocument
	}}
	index := &MockIndexService{EmbedFunc: func(context.Context, string) (*domain.IndexEntry, error) {
		embedded = true
		return nil, nil
	}}
	view := loadedView(docs, index)

	_, cmd := selectAction(view, ActionIndex)
	msg := cmd().(messages.DocumentIndexed)

	assert.ErrorIs(t, msg.Err, domain.ErrEmptyDocument)
	assert.False(t, embedded)
}

func TestView_Action_Index_NoIndexService(t *testing.T) {
	view := loadedView(&MockDocumentService{}, nil)

	_, cmd := selectAction(view, ActionIndex)
	msg := cmd().(messages.DocumentIndexed)

	assert.ErrorIs(t, msg.Err, ErrNoIndexService)
}

func TestView_Action_Remove(t *testing.T) {
	var deleted string
	remaining := testDocuments()[1:]
	docs := &MockDocumentService{
		DeleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
		ListFunc: func(context.Context) ([]domain.Document, error) {
			return remaining, nil
		},
	}
	view := loadedView(docs, nil)

	view, cmd := selectAction(view, ActionRemove)
	msg, ok := cmd().(messages.DocumentRemoved)
	require.True(t, ok)
	assert.Equal(t, "doc-1", deleted)

	view, reload := view.Update(msg)
	require.NotNil(t, reload)
	view, _ = view.Update(reload())

	assert.Len(t, view.Documents(), 1)
	assert.Equal(t, "Removed doc-1", view.Notice())
}

func TestView_Action_Remove_Error(t *testing.T) {
	docs := &MockDocumentService{DeleteFunc: func(context.Context, string) error {
		return domain.ErrNotFound
	}}
	view := loadedView(docs, nil)

	view, cmd := selectAction(view, ActionRemove)
	view, reload := view.Update(cmd())

	assert.Nil(t, reload)
	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
}

func TestView_View_Empty(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetDimensions(80, 24)

	output := view.View()

	assert.Contains(t, output, "Documents (0)")
	assert.Contains(t, output, "No documents yet")
}

func TestView_View_List(t *testing.T) {
	view := loadedView(&MockDocumentService{}, nil)

	output := view.View()

	assert.Contains(t, output, "Documents (2)")
	assert.Contains(t, output, "france.txt")
	assert.Contains(t, output, "512 B")
	assert.Contains(t, output, "2025-03-01")
	assert.Contains(t, output, "3.0 MB")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", formatSize(0))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2<<20))
}
