// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: Document and chunk set persistence
//   - IndexStore: Per-document vector index persistence
//   - AnswerLog: Audit records of answered queries
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docdetective/data/docdetective.db
//
// # Thread Safety
//
// All operations are thread-safe. Chunk set replacement and index swaps run in
// a single transaction, and readers in WAL mode see either the previous rows
// or the new ones.
package sqlite
