/*
audit.go - Audit trail collaborator

PURPOSE:
  Every purge writes an audit event describing what was destroyed. The
  engine treats the audit writer as a collaborator: the write is awaited
  before the purge is declared complete, but an audit failure after the
  deletes have committed is reported as a partial failure, not rolled back.

IMPLEMENTATIONS:
  - LogAudit: structured logrus output (default)
  - StoreAudit: persists events into the document store's audit collection
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditEvent describes one administrative action.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditLog records administrative actions. Append-only.
type AuditLog interface {
	LogEvent(ctx context.Context, ev AuditEvent) error
}

// =============================================================================
// LOGRUS AUDIT - Structured log output
// =============================================================================

type LogAudit struct {
	Log logrus.FieldLogger
}

func NewLogAudit(log logrus.FieldLogger) *LogAudit {
	return &LogAudit{Log: log}
}

func (a *LogAudit) LogEvent(_ context.Context, ev AuditEvent) error {
	fields := logrus.Fields{
		"audit_id": ev.ID,
		"actor":    ev.Actor,
		"action":   ev.Action,
	}
	for k, v := range ev.Details {
		fields[k] = v
	}
	a.Log.WithFields(fields).Info("audit event")
	return nil
}

// =============================================================================
// STORE AUDIT - Persists events into the document store
// =============================================================================

type StoreAudit struct {
	Store Store
}

func NewStoreAudit(store Store) *StoreAudit {
	return &StoreAudit{Store: store}
}

func (a *StoreAudit) LogEvent(ctx context.Context, ev AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return a.Store.Update(ctx, map[string]any{
		PathFor(CollectionAudit, ev.ID): ev,
	})
}
