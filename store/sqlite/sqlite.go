/*
Package sqlite provides a SQLite-backed implementation of the ledger Store.

PURPOSE:
  Persists the key-path document model in a single documents table:
  (collection, id) -> JSON body. This mirrors the store the system was
  designed against - an opaque key-path database with atomic multi-key
  updates - while keeping everything in one embeddable file.

ATOMICITY:
  Update runs all its upserts/deletes inside one SQL transaction, which
  gives the purge engine its all-or-nothing delete batch. Transact runs a
  read-modify-write on one document's numeric field inside its own
  transaction, serialized by a mutex; under PostgreSQL the same pattern
  would use SELECT ... FOR UPDATE instead.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/supply.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: interface definition and atomicity contract
  - ledger/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stockroom/supply-engine/ledger"
)

// Store implements ledger.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		body       TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection
		ON documents(collection);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put upserts one document outside any batch. Used by seeders and the
// forward write screens; the ledger engine itself writes through Update
// and Transact only.
func (s *Store) Put(ctx context.Context, col ledger.Collection, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body`,
		string(col), id, string(body))
	return err
}

func (s *Store) Snapshot(ctx context.Context) (*ledger.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection, id, body FROM documents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dump := make(map[ledger.Collection]map[string]json.RawMessage)
	for rows.Next() {
		var col, id, body string
		if err := rows.Scan(&col, &id, &body); err != nil {
			return nil, err
		}
		c := ledger.Collection(col)
		if dump[c] == nil {
			dump[c] = make(map[string]json.RawMessage)
		}
		dump[c][id] = json.RawMessage(body)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ledger.DecodeDataset(dump)
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	col, id, field, err := ledger.SplitPath(path)
	if err != nil {
		return false, err
	}
	if field != "" {
		return false, fmt.Errorf("%w: %q", ledger.ErrPathNotFound, path)
	}

	var one int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE collection = ? AND id = ?`,
		string(col), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update applies every change inside one SQL transaction: all or nothing.
func (s *Store) Update(ctx context.Context, changes map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for path, value := range changes {
		col, id, field, err := ledger.SplitPath(path)
		if err != nil {
			return err
		}
		if field != "" {
			return fmt.Errorf("%w: field-level update %q", ledger.ErrPathNotFound, path)
		}

		if value == nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`,
				string(col), id); err != nil {
				return err
			}
			continue
		}

		body, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
			 ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body`,
			string(col), id, string(body)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Transact runs a read-modify-write on one document's numeric field.
func (s *Store) Transact(ctx context.Context, path string, fn func(current int64) int64) (int64, error) {
	col, id, field, err := ledger.SplitPath(path)
	if err != nil {
		return 0, err
	}
	if field == "" {
		return 0, fmt.Errorf("%w: transact needs a field path, got %q", ledger.ErrPathNotFound, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		string(col), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s/%s", ledger.ErrPathNotFound, col, id)
	}
	if err != nil {
		return 0, err
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return 0, fmt.Errorf("%w: %s/%s: %v", ledger.ErrMalformedDocument, col, id, err)
	}

	current := int64(0)
	if raw, ok := doc[field]; ok {
		num, ok := raw.(float64)
		if !ok {
			return 0, fmt.Errorf("%w: %s is not numeric", ledger.ErrMalformedDocument, path)
		}
		current = int64(num)
	}

	next := fn(current)
	doc[field] = next

	updated, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		string(updated), string(col), id); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}
