/*
purge.go - Purge (Reversal) Engine

PURPOSE:
  Administrative, irreversible-by-design deletion of a transaction log plus
  reversal of its inventory effect. Purge is the ONLY path that destroys
  log records; forward screens only ever create them.

SEQUENCE:
  1. Verify the capability and that the entry is purgeable.
  2. Verify the log still exists (a repeated purge of the same logId is a
     distinct not-found condition, never a further mutation).
  3. Assemble ONE atomic multi-path delete batch:
       - the source log
       - for a receive: the batches it created, plus every downstream log
         the safety checker reports (after confirming nothing blocks)
       - linked consignment consumption records
  4. Commit the delete batch (all-or-nothing).
  5. Reverse quantity effects batch by batch through the store's per-key
     numeric transaction. Batches deleted in step 4 are skipped: their
     stock ceased to exist, there is nothing to adjust.
  6. Write the audit event.

FAILURE SEMANTICS:
  Steps 5 and 6 run after the deletes have committed. Any failure there is
  collected and surfaced as a PartialPurgeError naming the exact sub-steps,
  so an operator can reconcile manually. This failure mode is loud by
  design; it is never silently indistinguishable from a no-op failure.

SEE ALSO:
  - safety.go: blocking rule and downstream discovery
  - store.go: the atomicity model this sequence leans on
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Role names an application role as the authorization collaborator reports
// it. Only the administrator role may purge.
type Role string

const RoleSystemAdministrator Role = "System Administrator"

// PurgeAuthorization is the capability required to invoke a purge. It can
// only be minted through NewPurgeAuthorization, so holding a non-zero value
// proves the role check happened. The engine still re-verifies at its
// boundary.
type PurgeAuthorization struct {
	actor string
	role  Role
}

// NewPurgeAuthorization mints the capability for an administrator actor.
func NewPurgeAuthorization(actor string, role Role) (PurgeAuthorization, error) {
	if actor == "" || role != RoleSystemAdministrator {
		return PurgeAuthorization{}, ErrNotAuthorized
	}
	return PurgeAuthorization{actor: actor, role: role}, nil
}

// Actor returns who holds the capability.
func (a PurgeAuthorization) Actor() string { return a.actor }

func (a PurgeAuthorization) valid() bool {
	return a.actor != "" && a.role == RoleSystemAdministrator
}

// Engine executes purges against a Store.
type Engine struct {
	Store Store
	Audit AuditLog
	Log   logrus.FieldLogger
}

func NewEngine(store Store, audit AuditLog, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{Store: store, Audit: audit, Log: log}
}

// reversal is one pending quantity adjustment.
type reversal struct {
	batch BatchID
	delta int64
}

// Purge deletes the entry's source log, reverses its quantity effect and
// cascades to dependent records. The dataset must be the snapshot the entry
// was built from.
func (e *Engine) Purge(ctx context.Context, auth PurgeAuthorization, d *Dataset, entry LedgerEntry) error {
	if !auth.valid() {
		return ErrNotAuthorized
	}
	if !entry.Purgeable {
		return fmt.Errorf("%w: %s %s", ErrNotPurgeable, entry.Type, entry.Reference)
	}

	logPath := PathFor(entry.LogTable, string(entry.LogID))
	exists, err := e.Store.Exists(ctx, logPath)
	if err != nil {
		return fmt.Errorf("checking %s: %w", logPath, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrLogNotFound, logPath)
	}

	changes := map[string]any{logPath: nil}
	deleted := make(map[BatchID]bool)
	var reversals []reversal

	// The entry's own effect. A stock-out entry adds the quantity back; a
	// stock-in entry subtracts it.
	sign := int64(1)
	if entry.QuantityIn > 0 {
		sign = -1
	}
	for _, item := range entry.Items {
		reversals = append(reversals, reversal{batch: item.InventoryItemID, delta: sign * int64(item.Quantity)})
	}

	if entry.LogTable == CollectionReceives {
		if err := e.cascadeReceive(d, entry, changes, deleted, &reversals); err != nil {
			return err
		}
	}

	// Consignment consumption records spawned by this log vanish with it.
	if entry.Consignment {
		e.cascadeConsumptions(d, entry.LogID, changes)
	}

	if err := e.Store.Update(ctx, changes); err != nil {
		return fmt.Errorf("purge delete batch for %s: %w", logPath, err)
	}

	// Deletes are committed. Everything from here on is collected rather
	// than returned early, so the operator sees the full damage report.
	var failures []StepFailure

	for _, rev := range reversals {
		if deleted[rev.batch] {
			continue
		}
		path := QuantityPath(rev.batch)
		delta := rev.delta
		if _, err := e.Store.Transact(ctx, path, func(current int64) int64 {
			return current + delta
		}); err != nil {
			failures = append(failures, StepFailure{Step: StepReversal, Path: path, Cause: err})
		}
	}

	if e.Audit != nil {
		ev := AuditEvent{
			Actor:  auth.Actor(),
			Action: "purge_transaction",
			Details: map[string]string{
				"logTable":  string(entry.LogTable),
				"logId":     string(entry.LogID),
				"type":      string(entry.Type),
				"reference": entry.Reference,
				"details":   entry.Details,
			},
		}
		if err := e.Audit.LogEvent(ctx, ev); err != nil {
			failures = append(failures, StepFailure{Step: StepAudit, Path: logPath, Cause: err})
		}
	}

	if len(failures) > 0 {
		perr := &PartialPurgeError{LogID: entry.LogID, Table: entry.LogTable, Failures: failures}
		e.Log.WithFields(logrus.Fields{
			"log_table": entry.LogTable,
			"log_id":    entry.LogID,
			"failed":    len(failures),
		}).Error(perr.Error())
		return perr
	}

	e.Log.WithFields(logrus.Fields{
		"log_table": entry.LogTable,
		"log_id":    entry.LogID,
		"actor":     auth.Actor(),
	}).Info("transaction purged")
	return nil
}

// cascadeReceive extends the delete batch with the batches the receipt
// created and every downstream log touching them, after the safety checker
// confirms nothing blocks.
func (e *Engine) cascadeReceive(d *Dataset, entry LedgerEntry, changes map[string]any, deleted map[BatchID]bool, reversals *[]reversal) error {
	rcv, ok := d.FindReceive(entry.LogID)
	if !ok {
		// Snapshot drifted from the entry; fall back to the ids the entry
		// itself carries so the created batches still vanish.
		rcv = ReceiveLog{ID: entry.LogID, CreatedItemIDs: entry.CreatedItemIDs}
	}

	report := CheckReceivePurgeSafety(d, rcv)
	if report.Blocked {
		return &PurgeBlockedError{LogID: entry.LogID, Reason: report.Reason}
	}

	for _, id := range rcv.CreatedItemIDs {
		changes[PathFor(CollectionBatches, string(id))] = nil
		deleted[id] = true
	}

	for _, ref := range report.Downstream {
		changes[PathFor(ref.Table, string(ref.LogID))] = nil
		// Downstream logs are stock-out movements; deleting them hands the
		// stock back to any batch that survives.
		for _, item := range ref.Items {
			*reversals = append(*reversals, reversal{batch: item.InventoryItemID, delta: int64(item.Quantity)})
		}
		// A cascaded dispense may itself have spawned consumption records.
		e.cascadeConsumptions(d, ref.LogID, changes)
	}
	return nil
}

// cascadeConsumptions deletes every consumption record whose derived source
// id matches the log being purged.
func (e *Engine) cascadeConsumptions(d *Dataset, id LogID, changes map[string]any) {
	for _, c := range d.Consumptions {
		if c.SourceLogID() == id {
			changes[PathFor(CollectionConsumptions, string(c.ID))] = nil
		}
	}
}
