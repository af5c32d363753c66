package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tkrief1/doc-detective/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// DatabaseFile is the name of the database file within the data directory.
const DatabaseFile = "docdetective.db"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docdetective/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docdetective", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers proceed while a writer swaps an index.
	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// IndexStore returns an IndexStore interface backed by this store.
func (s *Store) IndexStore() driven.IndexStore {
	return &indexStore{store: s}
}

// AnswerLog returns an AnswerLog interface backed by this store.
func (s *Store) AnswerLog() driven.AnswerLog {
	return &answerLog{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// apply runs one migration and records its version in the same transaction.
func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	pagesJSON, err := json.Marshal(doc.Pages)
	if err != nil {
		return fmt.Errorf("marshalling pages: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, filename, content_type, size_bytes, content, pages, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			filename = excluded.filename,
			content_type = excluded.content_type,
			size_bytes = excluded.size_bytes,
			content = excluded.content,
			pages = excluded.pages,
			created_at = excluded.created_at
	`, doc.ID, doc.Title, doc.Filename, doc.ContentType, doc.SizeBytes, doc.Content,
		string(pagesJSON), doc.CreatedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, filename, content_type, size_bytes, content, pages, created_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, filename, content_type, size_bytes, content, pages, created_at
		FROM documents ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document with its chunk set and index entry.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM index_vectors WHERE document_id = ?",
			"DELETE FROM index_entries WHERE document_id = ?",
			"DELETE FROM chunks WHERE document_id = ?",
			"DELETE FROM chunk_sets WHERE document_id = ?",
			"DELETE FROM documents WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("deleting document: %w", err)
			}
		}
		return nil
	})
}

// ReplaceChunks atomically replaces the document's chunk set.
func (s *documentStore) ReplaceChunks(ctx context.Context, set *domain.ChunkSet) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if err := documentExists(ctx, tx, set.DocumentID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", set.DocumentID); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_sets WHERE document_id = ?", set.DocumentID); err != nil {
			return fmt.Errorf("deleting chunk set: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunk_sets (document_id, max_chunk_chars, overlap_chars, boundary_preference,
				boundary_tolerance, fingerprint, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, set.DocumentID, set.Settings.MaxChunkChars, set.Settings.OverlapChars,
			set.Settings.BoundaryPreference, set.Settings.BoundaryTolerance, set.Fingerprint, set.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("saving chunk set: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (document_id, position, id, start_offset, end_offset, page, content)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for _, c := range set.Chunks {
			if _, err := stmt.ExecContext(ctx, set.DocumentID, c.Index, c.ID,
				c.Start, c.End, nullPage(c.Page), c.Content); err != nil {
				return fmt.Errorf("saving chunk: %w", err)
			}
		}
		return nil
	})
}

// GetChunkSet returns the document's current chunk set.
func (s *documentStore) GetChunkSet(ctx context.Context, documentID string) (*domain.ChunkSet, error) {
	set := &domain.ChunkSet{DocumentID: documentID}

	err := s.store.db.QueryRowContext(ctx, `
		SELECT max_chunk_chars, overlap_chars, boundary_preference, boundary_tolerance, fingerprint, created_at
		FROM chunk_sets WHERE document_id = ?
	`, documentID).Scan(&set.Settings.MaxChunkChars, &set.Settings.OverlapChars,
		&set.Settings.BoundaryPreference, &set.Settings.BoundaryTolerance, &set.Fingerprint, &set.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chunk set: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT position, id, start_offset, end_offset, page, content
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c := domain.Chunk{DocumentID: documentID}
		var page sql.NullInt64
		if err := rows.Scan(&c.Index, &c.ID, &c.Start, &c.End, &page, &c.Content); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Page = pageFrom(page)
		set.Chunks = append(set.Chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return set, nil
}

// ==================== Index Store ====================

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// Load returns the document's current index entry. The header and vectors
// are read in one transaction so a concurrent Swap is never seen half done.
func (s *indexStore) Load(ctx context.Context, documentID string) (*domain.IndexEntry, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	entry := &domain.IndexEntry{DocumentID: documentID}
	err = tx.QueryRowContext(ctx, `
		SELECT model, dimensions, fingerprint, built_at
		FROM index_entries WHERE document_id = ?
	`, documentID).Scan(&entry.Model, &entry.Dimensions, &entry.ChunkSetFingerprint, &entry.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying index entry: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT position, chunk_id, start_offset, end_offset, page, content, vector
		FROM index_vectors WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying index vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c := domain.Chunk{DocumentID: documentID}
		var page sql.NullInt64
		var blob []byte
		if err := rows.Scan(&c.Index, &c.ID, &c.Start, &c.End, &page, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning index vector: %w", err)
		}
		c.Page = pageFrom(page)
		entry.Entries = append(entry.Entries, domain.IndexedChunk{
			Chunk:     c,
			Embedding: domain.Embedding{Model: entry.Model, Vector: bytesToFloat32Slice(blob)},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index vectors: %w", err)
	}

	return entry, nil
}

// Swap replaces the document's entry in one transaction.
func (s *indexStore) Swap(ctx context.Context, entry *domain.IndexEntry) error {
	if entry == nil || entry.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if err := documentExists(ctx, tx, entry.DocumentID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM index_vectors WHERE document_id = ?", entry.DocumentID); err != nil {
			return fmt.Errorf("deleting index vectors: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO index_entries (document_id, model, dimensions, fingerprint, built_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(document_id) DO UPDATE SET
				model = excluded.model,
				dimensions = excluded.dimensions,
				fingerprint = excluded.fingerprint,
				built_at = excluded.built_at
		`, entry.DocumentID, entry.Model, entry.Dimensions, entry.ChunkSetFingerprint, entry.BuiltAt.UTC())
		if err != nil {
			return fmt.Errorf("saving index entry: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO index_vectors (document_id, position, chunk_id, start_offset, end_offset, page, content, vector)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for _, ic := range entry.Entries {
			c := ic.Chunk
			if _, err := stmt.ExecContext(ctx, entry.DocumentID, c.Index, c.ID, c.Start, c.End,
				nullPage(c.Page), c.Content, float32SliceToBytes(ic.Embedding.Vector)); err != nil {
				return fmt.Errorf("saving index vector: %w", err)
			}
		}
		return nil
	})
}

// Delete removes the document's entry.
func (s *indexStore) Delete(ctx context.Context, documentID string) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM index_vectors WHERE document_id = ?", documentID); err != nil {
			return fmt.Errorf("deleting index vectors: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM index_entries WHERE document_id = ?", documentID); err != nil {
			return fmt.Errorf("deleting index entry: %w", err)
		}
		return nil
	})
}

// ==================== Answer Log ====================

// answerLog implements driven.AnswerLog.
type answerLog struct {
	store *Store
}

var _ driven.AnswerLog = (*answerLog)(nil)

// Record appends an answer record.
func (s *answerLog) Record(ctx context.Context, record domain.AnswerRecord) error {
	cited := record.CitedChunkIDs
	if cited == nil {
		cited = []string{}
	}
	citedJSON, err := json.Marshal(cited)
	if err != nil {
		return fmt.Errorf("marshalling cited chunks: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO answer_log (id, document_id, query, answer_text, confidence_label,
			cited_chunk_ids, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.DocumentID, record.Query, record.AnswerText, string(record.ConfidenceLabel),
		string(citedJSON), record.Latency.Milliseconds(), record.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving answer record: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
// A limit of zero or less returns every matching record.
func (s *answerLog) List(ctx context.Context, documentID string, limit int) ([]domain.AnswerRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded.
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, query, answer_text, confidence_label, cited_chunk_ids, latency_ms, created_at
		FROM answer_log
		WHERE ? = '' OR document_id = ?
		ORDER BY rowid DESC
		LIMIT ?
	`, documentID, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying answer log: %w", err)
	}
	defer rows.Close()

	var records []domain.AnswerRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.AnswerRecord
		var label, citedJSON string
		var latencyMS int64
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Query, &r.AnswerText, &label,
			&citedJSON, &latencyMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning answer record: %w", err)
		}
		r.ConfidenceLabel = domain.ConfidenceLabel(label)
		r.Latency = time.Duration(latencyMS) * time.Millisecond
		if err := json.Unmarshal([]byte(citedJSON), &r.CitedChunkIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling cited chunks: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating answer log: %w", err)
	}

	return records, nil
}

// ==================== Helper Functions ====================

// inTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// documentExists returns domain.ErrNotFound when the document is missing.
func documentExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func nullPage(page *int) sql.NullInt64 {
	if page == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*page), Valid: true}
}

func pageFrom(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	page := int(v.Int64)
	return &page
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var pagesJSON string

	if err := row.Scan(&doc.ID, &doc.Title, &doc.Filename, &doc.ContentType, &doc.SizeBytes,
		&doc.Content, &pagesJSON, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if pagesJSON != "" && pagesJSON != "null" {
		if err := json.Unmarshal([]byte(pagesJSON), &doc.Pages); err != nil {
			return nil, fmt.Errorf("unmarshaling pages: %w", err)
		}
	}

	return &doc, nil
}
