package docdetails

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui/messages"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

func testDocument() *domain.Document {
	return &domain.Document{
		ID:          "doc-1",
		Title:       "handbook",
		Filename:    "handbook.pdf",
		ContentType: "application/pdf",
		SizeBytes:   2048,
		Content:     "Première page.\fSecond page.",
		Pages:       []domain.Page{{Number: 1, Offset: 0}, {Number: 2, Offset: 16}},
		CreatedAt:   time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestNewView(t *testing.T) {
	view := NewView(nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Nil(t, view.Document())
	assert.Nil(t, view.Init())
	assert.Contains(t, view.View(), "No document details available")
}

func TestView_DetailsLoaded(t *testing.T) {
	view := NewView(nil)
	status := &domain.IndexStatus{DocumentID: "doc-1", Chunked: true, ChunkCount: 4, Embedded: 4, Model: "nomic-embed-text"}

	view, _ = view.Update(messages.DocumentDetailsLoaded{Document: testDocument(), Status: status})

	assert.Equal(t, "doc-1", view.Document().ID)
	assert.Equal(t, status, view.Status())

	output := view.View()
	assert.Contains(t, output, "handbook.pdf")
	assert.Contains(t, output, "application/pdf")
	assert.Contains(t, output, "2048 bytes")
	assert.Contains(t, output, "27")
	assert.Contains(t, output, "2025-03-01 09:30:00")
	assert.Contains(t, output, "chunks:")
	assert.Contains(t, output, "nomic-embed-text")
	assert.NotContains(t, output, "stale")
}

func TestView_DetailsLoaded_Error(t *testing.T) {
	view := NewView(nil)

	view, _ = view.Update(messages.DocumentDetailsLoaded{Err: domain.ErrNotFound})

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
	assert.Contains(t, view.View(), "Error: not found")
}

func TestView_BuildContent_IndexStates(t *testing.T) {
	tests := []struct {
		name   string
		status *domain.IndexStatus
		want   string
	}{
		{"no index service", nil, "  status: unavailable"},
		{"not chunked", &domain.IndexStatus{}, "  chunked: no"},
		{"stale", &domain.IndexStatus{Chunked: true, ChunkCount: 2, Embedded: 1, Stale: true}, "  stale: rebuilt on next index"},
		{"embedded", &domain.IndexStatus{Chunked: true, ChunkCount: 2, Embedded: 2}, "  embedded: 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewView(nil)
			view.SetDetails(testDocument(), tt.status)

			assert.Contains(t, view.buildContent(), tt.want)
		})
	}
}

func TestView_Ask(t *testing.T) {
	view := NewView(nil)
	view.SetDetails(testDocument(), nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})

	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.AskDocument)
	require.True(t, ok)
	assert.Equal(t, "doc-1", msg.Document.ID)
}

func TestView_Ask_NoDocument(t *testing.T) {
	_, cmd := NewView(nil).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})

	assert.Nil(t, cmd)
}

func TestView_Esc_ReturnsToDocuments(t *testing.T) {
	_, cmd := NewView(nil).Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewDocuments}, cmd())
}

func TestView_Scroll(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 10) // 4 visible lines
	view.SetDetails(testDocument(), &domain.IndexStatus{Chunked: true, ChunkCount: 1, Embedded: 1})
	total := len(view.buildContent())

	for i := 0; i < total+5; i++ {
		view, _ = view.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, total-4, view.scrollOffset)
	assert.Contains(t, view.View(), "of 12]")

	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, total-5, view.scrollOffset)
}

func TestView_ErrorOccurred(t *testing.T) {
	view, _ := NewView(nil).Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, view.Err(), "boom")
}
