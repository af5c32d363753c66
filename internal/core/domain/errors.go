package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document format or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Pipeline Errors.

	// ErrEmptyDocument indicates the document text is empty or whitespace only.
	ErrEmptyDocument = errors.New("empty document")

	// ErrInvalidConfig indicates chunker or pipeline configuration is unusable.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNotChunked indicates embedding was requested before chunking.
	ErrNotChunked = errors.New("document not chunked")

	// ErrIndexModelMismatch indicates the index was built with a different
	// embedding model or dimension than the one available for queries.
	// Callers should re-embed the document.
	ErrIndexModelMismatch = errors.New("index model mismatch")

	// ErrEmptyIndex indicates the document has no embedded chunks.
	ErrEmptyIndex = errors.New("empty index")

	// ErrInvalidArgument indicates a request parameter is out of range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGenerationFailed indicates the text-generation capability failed
	// after all retries.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrCapabilityTimeout indicates an external capability call exceeded its
	// deadline on every attempt.
	ErrCapabilityTimeout = errors.New("capability timeout")

	// ErrEmbeddingFailed indicates the embedding capability failed after all retries.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrPermanent marks a capability error that must not be retried.
	ErrPermanent = errors.New("permanent failure")
)

// errorKinds maps sentinels to the names surfaced to users, in match order.
var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrCapabilityTimeout, "CapabilityTimeout"},
	{ErrEmptyDocument, "EmptyDocument"},
	{ErrInvalidConfig, "InvalidConfig"},
	{ErrNotChunked, "NotChunked"},
	{ErrIndexModelMismatch, "IndexModelMismatch"},
	{ErrEmptyIndex, "EmptyIndex"},
	{ErrInvalidArgument, "InvalidArgument"},
	{ErrGenerationFailed, "GenerationFailed"},
	{ErrEmbeddingFailed, "EmbeddingFailed"},
	{ErrNotFound, "NotFound"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrUnsupportedType, "UnsupportedType"},
}

// ErrorKind returns the taxonomy name for err, or "Internal" when err does not
// wrap a known sentinel. It returns an empty string for a nil error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
