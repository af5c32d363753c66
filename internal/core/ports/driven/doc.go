// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document and chunk set persistence
//   - IndexStore: Per-document vector index with atomic replacement
//   - EmbeddingService: Generates vector embeddings
//   - AnswerGenerator: Produces tagged answers from evidence
//   - PostProcessor: Chunking pipeline stages
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - AnswerLog: Audit trail of answered queries
//   - DocumentCatalog: Keyword lookup of documents by title or content
//   - NormaliserRegistry: Text extraction for uploaded files
//   - LLMService: Language model completion behind a grounded AnswerGenerator
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
