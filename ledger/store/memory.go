// Package store provides Store implementations.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/stockroom/supply-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory key-path store (for testing/dev)
// =============================================================================

// Memory keeps every document as raw JSON keyed by collection and id, the
// same wire shape the SQLite store persists. Multi-path updates apply under
// one lock, which gives them the all-or-nothing semantics the purge engine
// expects.
type Memory struct {
	mu   sync.RWMutex
	docs map[ledger.Collection]map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[ledger.Collection]map[string]json.RawMessage)}
}

// Seed inserts records directly, bypassing path parsing. Intended for test
// fixtures and demo data.
func (m *Memory) Seed(records ...ledger.Record) error {
	for _, r := range records {
		if err := m.put(ledger.PathFor(r.Table(), string(r.RecordID())), r); err != nil {
			return err
		}
	}
	return nil
}

// SeedDoc inserts an arbitrary document (batch, facility, item master).
func (m *Memory) SeedDoc(col ledger.Collection, id string, v any) error {
	return m.put(ledger.PathFor(col, id), v)
}

func (m *Memory) put(path string, v any) error {
	col, id, field, err := ledger.SplitPath(path)
	if err != nil {
		return err
	}
	if field != "" {
		return fmt.Errorf("%w: field-level write %q", ledger.ErrPathNotFound, path)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[col] == nil {
		m.docs[col] = make(map[string]json.RawMessage)
	}
	m.docs[col][id] = body
	return nil
}

func (m *Memory) Snapshot(_ context.Context) (*ledger.Dataset, error) {
	m.mu.RLock()
	dump := make(map[ledger.Collection]map[string]json.RawMessage, len(m.docs))
	for col, bodies := range m.docs {
		cp := make(map[string]json.RawMessage, len(bodies))
		for id, body := range bodies {
			cp[id] = body
		}
		dump[col] = cp
	}
	m.mu.RUnlock()

	return ledger.DecodeDataset(dump)
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	col, id, field, err := ledger.SplitPath(path)
	if err != nil {
		return false, err
	}
	if field != "" {
		return false, fmt.Errorf("%w: %q", ledger.ErrPathNotFound, path)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[col][id]
	return ok, nil
}

// Update applies every change or none. Paths are validated before any write
// so a malformed path cannot leave a half-applied batch.
func (m *Memory) Update(_ context.Context, changes map[string]any) error {
	type op struct {
		col  ledger.Collection
		id   string
		body json.RawMessage // nil = delete
	}
	ops := make([]op, 0, len(changes))
	for path, value := range changes {
		col, id, field, err := ledger.SplitPath(path)
		if err != nil {
			return err
		}
		if field != "" {
			return fmt.Errorf("%w: field-level update %q", ledger.ErrPathNotFound, path)
		}
		o := op{col: col, id: id}
		if value != nil {
			body, err := json.Marshal(value)
			if err != nil {
				return err
			}
			o.body = body
		}
		ops = append(ops, o)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range ops {
		if o.body == nil {
			delete(m.docs[o.col], o.id)
			continue
		}
		if m.docs[o.col] == nil {
			m.docs[o.col] = make(map[string]json.RawMessage)
		}
		m.docs[o.col][o.id] = o.body
	}
	return nil
}

// Transact runs a read-modify-write on a numeric document field. The lock
// serializes concurrent transactions on the same key.
func (m *Memory) Transact(_ context.Context, path string, fn func(current int64) int64) (int64, error) {
	col, id, field, err := ledger.SplitPath(path)
	if err != nil {
		return 0, err
	}
	if field == "" {
		return 0, fmt.Errorf("%w: transact needs a field path, got %q", ledger.ErrPathNotFound, path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.docs[col][id]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ledger.ErrPathNotFound, col, id)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
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
	m.docs[col][id] = updated
	return next, nil
}
