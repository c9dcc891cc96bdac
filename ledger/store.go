/*
store.go - Key-path persistence interface

PURPOSE:
  Defines the interface between the ledger engine and the document store.
  The store is an opaque key-path database: documents live at
  "collection/id", and the engine relies on exactly three capabilities:

    Snapshot   bulk read of all collections into a typed Dataset
    Exists     presence check for one document
    Update     atomic multi-path write; nil value = delete, all-or-nothing
    Transact   per-key numeric read-modify-write with retry-on-conflict

ATOMICITY MODEL:
  Update applies every listed path as a single indivisible operation; the
  purge engine depends on this for the log + cascade delete batch.
  Transact is a SEPARATE per-key primitive and is deliberately NOT bundled
  with Update: deletes commit first as one batch, then quantity reversals
  run as independent per-key transactions. Concurrent writers to the same
  batch quantity are serialized by Transact, never by a higher-level lock.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and development
  - store/sqlite/sqlite.go: SQLite-backed document table

SEE ALSO:
  - purge.go: the only writer going through this interface
  - dataset.go: the shared document codec
*/
package ledger

import "context"

// Store is the key-path document store the ledger engine runs against.
type Store interface {
	// Snapshot bulk-reads every collection into a typed Dataset.
	Snapshot(ctx context.Context) (*Dataset, error)

	// Exists reports whether a document exists at "collection/id".
	Exists(ctx context.Context, path string) (bool, error)

	// Update atomically applies all changes: value -> upsert, nil -> delete.
	// Either every path is applied or none is. Values must be JSON-encodable
	// record structs; field-level paths are not accepted here.
	Update(ctx context.Context, changes map[string]any) error

	// Transact runs a read-modify-write on a numeric field path such as
	// "inventoryItems/<id>/quantity". fn receives the current value and
	// returns the new one. Conflicting concurrent transactions retry
	// internally. Returns ErrPathNotFound when the document is missing.
	Transact(ctx context.Context, path string, fn func(current int64) int64) (int64, error)
}
