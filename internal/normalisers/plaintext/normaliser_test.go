package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "application/json")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "capital_cities-notes.txt",
		MIMEType: "text/plain",
		Content:  []byte("The capital of France is Paris."),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "capital cities notes", result.Document.Title)
	assert.Equal(t, "The capital of France is Paris.", result.Document.Content)
	assert.Nil(t, result.Document.Pages)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain", []byte("hello"), "hello"},
		{"bom", []byte("\xEF\xBB\xBFhello"), "hello"},
		{"crlf", []byte("a\r\nb\rc\n"), "a\nb\nc\n"},
		{"invalid utf8", []byte("caf\xe9 ok"), "caf ok"},
		{"multibyte kept", []byte("naïve état"), "naïve état"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
