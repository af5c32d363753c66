package domain

// RawDocument is an uploaded file before text extraction.
type RawDocument struct {
	// Filename is the original file name.
	Filename string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
