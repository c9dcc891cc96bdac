/*
builder.go - Ledger Builder: normalize every log shape into LedgerTransaction

PURPOSE:
  Scans all log collections in a Dataset, keeps the records touching the
  target item master in the requested view (main vs consignment), and
  normalizes each into the common LedgerTransaction shape with its signed
  quantity split into QuantityIn / QuantityOut.

EXTRACTION RULES (one per Record variant):
  Receive          one entry per log, in = sum of matching line quantities
  Dispense/RIS/RO  one entry per matching line, out = line quantity
  WriteOff/Return  one entry per matching line, out = line quantity
  InternalReturn   one entry per matching line, in = line quantity
  Transfer         up to two entries: Transfer Out at the source, and once
                   acknowledged a Transfer In at the destination with the
                   confirmed received quantity (0 when a line was never
                   confirmed, as happens under Discrepancy)
  Adjustment       single entry, delta = toQuantity - fromQuantity
  PhysicalCount    one entry per nonzero-variance line of a Completed,
                   reviewed count; never purgeable
  Consumption      no entries; consumption records only steer cascades

  A line "matches" when its inventory item id resolves to a batch of the
  target item master whose consignment flag matches the view.

PURGE POLICY:
  Purgeability is membership in a fixed allow-list, which differs per view:
  the consignment ledger never offers Receive purges. Transfer Out rows are
  purgeable only while the transfer is still Pending; acknowledged
  transfers are immutable from the ledger.

OUTPUT:
  Unsorted and unfiltered by date/facility. window.go applies ordering,
  windows and balances.
*/
package ledger

import "time"

// View selects which of the two ledger pages is being built.
type View string

const (
	ViewMain        View = "main"
	ViewConsignment View = "consignment"
)

func (v View) consignment() bool { return v == ViewConsignment }

// Builder normalizes a Dataset's logs for one item master.
type Builder struct {
	data    *Dataset
	lookups *Lookups
}

// NewBuilder indexes the snapshot once; reuse the builder across views.
func NewBuilder(d *Dataset) *Builder {
	return &Builder{data: d, lookups: d.Lookups()}
}

// Lookups exposes the indexes built for this snapshot.
func (b *Builder) Lookups() *Lookups { return b.lookups }

// BuildLedger returns every normalized transaction touching the item in the
// requested view. Source-scan order is preserved so identical timestamps
// keep a deterministic relative order downstream.
func (b *Builder) BuildLedger(item ItemMasterID, view View) []LedgerTransaction {
	var out []LedgerTransaction

	for _, r := range b.data.Receives {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.Dispenses {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.RIS {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.RO {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.Transfers {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.WriteOffs {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.Returns {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.InternalReturns {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.Adjustments {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.PhysicalCounts {
		out = append(out, b.normalize(r, item, view)...)
	}
	for _, r := range b.data.Consumptions {
		out = append(out, b.normalize(r, item, view)...)
	}
	return out
}

// normalize is the single exhaustive match over the Record sum. A new log
// shape added to types.go that is not handled here falls through to the
// panic, so it cannot be silently ignored.
func (b *Builder) normalize(rec Record, item ItemMasterID, view View) []LedgerTransaction {
	switch r := rec.(type) {
	case ReceiveLog:
		return b.normalizeReceive(r, item, view)
	case DispenseLog:
		return b.perLine(r.Table(), r.ID, r.Timestamp, EntryDispense, r.Reference,
			"To: "+r.IssuedTo, r.FacilityID, r.Items, item, view, directionOut)
	case RISLog:
		return b.perLine(r.Table(), r.ID, r.Timestamp, EntryRIS, r.Reference,
			"For: "+r.RequestingOffice, r.FacilityID, r.Items, item, view, directionOut)
	case ROLog:
		return b.perLine(r.Table(), r.ID, r.Timestamp, EntryRO, r.Reference,
			"Released to: "+r.ReleasedTo, r.FacilityID, r.Items, item, view, directionOut)
	case TransferLog:
		return b.normalizeTransfer(r, item, view)
	case WriteOffLog:
		return b.perLine(r.Table(), r.ID, r.Timestamp, EntryWriteOff, r.Reference,
			"Reason: "+r.Reason, r.FacilityID, r.Items, item, view, directionOut)
	case ReturnLog:
		return b.perLine(r.Table(), r.ID, r.Timestamp, EntryReturn, r.Reference,
			"To: "+r.SupplierName, r.FacilityID, r.Items, item, view, directionOut)
	case InternalReturnLog:
		return b.perLine(r.Table(), r.ID, r.Timestamp, EntryInternalReturn, r.Reference,
			"From: "+r.ReturnedBy, r.FacilityID, r.Items, item, view, directionIn)
	case AdjustmentLog:
		return b.normalizeAdjustment(r, item, view)
	case PhysicalCountLog:
		return b.normalizeCount(r, item, view)
	case ConsignmentConsumptionLog:
		// Consumption records are a billing side channel, never a ledger row.
		return nil
	default:
		panic("ledger: unhandled record variant")
	}
}

type direction int

const (
	directionOut direction = iota
	directionIn
)

// matches reports whether a line's batch resolves to the target item master
// with the view's consignment flag.
func (b *Builder) matches(id BatchID, item ItemMasterID, view View) bool {
	batch, ok := b.lookups.ResolveBatch(id)
	return ok && batch.ItemMasterID == item && batch.IsConsignment == view.consignment()
}

func (b *Builder) normalizeReceive(r ReceiveLog, item ItemMasterID, view View) []LedgerTransaction {
	if r.IsConsignment != view.consignment() {
		return nil
	}

	total := 0
	for _, line := range r.Items {
		if b.matches(line.InventoryItemID, item, view) {
			total += line.Quantity
		}
	}
	if total == 0 {
		return nil
	}

	return []LedgerTransaction{{
		LogID:          r.ID,
		LogTable:       r.Table(),
		Date:           r.Timestamp,
		Type:           EntryReceive,
		Reference:      r.Reference,
		Details:        "From: " + r.SupplierName,
		FacilityID:     r.FacilityID,
		FacilityName:   b.lookups.FacilityName(r.FacilityID),
		QuantityIn:     total,
		Purgeable:      view == ViewMain,
		Items:          r.Items,
		CreatedItemIDs: r.CreatedItemIDs,
		Consignment:    r.IsConsignment,
	}}
}

// perLine produces one entry per matching line item. Items always carries
// the log's FULL raw line list: purging any one row deletes the whole log,
// so the reversal must undo every line, not just the row's own.
func (b *Builder) perLine(
	table Collection, id LogID, ts time.Time, entryType EntryType,
	reference, details string, facility FacilityID, lines []LineItem,
	item ItemMasterID, view View, dir direction,
) []LedgerTransaction {
	var out []LedgerTransaction
	for _, line := range lines {
		if !b.matches(line.InventoryItemID, item, view) {
			continue
		}
		tx := LedgerTransaction{
			LogID:        id,
			LogTable:     table,
			Date:         ts,
			Type:         entryType,
			Reference:    reference,
			Details:      details,
			FacilityID:   facility,
			FacilityName: b.lookups.FacilityName(facility),
			Purgeable:    true,
			Items:        lines,
			Consignment:  view.consignment(),
		}
		if dir == directionIn {
			tx.QuantityIn = line.Quantity
		} else {
			tx.QuantityOut = line.Quantity
		}
		out = append(out, tx)
	}
	return out
}

func (b *Builder) normalizeTransfer(r TransferLog, item ItemMasterID, view View) []LedgerTransaction {
	sent := 0
	received := 0
	items := make([]LineItem, 0, len(r.Items))
	for _, line := range r.Items {
		items = append(items, LineItem{InventoryItemID: line.InventoryItemID, Quantity: line.Quantity})
		if !b.matches(line.InventoryItemID, item, view) {
			continue
		}
		sent += line.Quantity
		if line.ReceivedQuantity != nil {
			received += *line.ReceivedQuantity
		}
	}
	if sent == 0 {
		return nil
	}

	out := []LedgerTransaction{{
		LogID:        r.ID,
		LogTable:     r.Table(),
		Date:         r.Timestamp,
		Type:         EntryTransferOut,
		Reference:    r.Reference,
		Details:      "To: " + b.lookups.FacilityName(r.ToFacilityID),
		FacilityID:   r.FromFacilityID,
		FacilityName: b.lookups.FacilityName(r.FromFacilityID),
		QuantityOut:  sent,
		Purgeable:    r.Status == TransferPending,
		Items:        items,
		Consignment:  view.consignment(),
	}}

	// The destination row exists only after acknowledgement, timestamped at
	// the acknowledgement. Unconfirmed lines contribute 0.
	if r.Status != TransferPending && r.AcknowledgedAt != nil && received > 0 {
		out = append(out, LedgerTransaction{
			LogID:        r.ID,
			LogTable:     r.Table(),
			Date:         *r.AcknowledgedAt,
			Type:         EntryTransferIn,
			Reference:    r.Reference,
			Details:      "From: " + b.lookups.FacilityName(r.FromFacilityID),
			FacilityID:   r.ToFacilityID,
			FacilityName: b.lookups.FacilityName(r.ToFacilityID),
			QuantityIn:   received,
			Consignment:  view.consignment(),
		})
	}
	return out
}

func (b *Builder) normalizeAdjustment(r AdjustmentLog, item ItemMasterID, view View) []LedgerTransaction {
	if !b.matches(r.InventoryItemID, item, view) {
		return nil
	}
	delta := r.ToQuantity - r.FromQuantity
	if delta == 0 {
		return nil
	}

	tx := LedgerTransaction{
		LogID:        r.ID,
		LogTable:     r.Table(),
		Date:         r.Timestamp,
		Type:         EntryAdjustment,
		Reference:    r.Reference,
		Details:      r.Reason,
		FacilityID:   r.FacilityID,
		FacilityName: b.lookups.FacilityName(r.FacilityID),
		Purgeable:    true,
		Consignment:  view.consignment(),
	}
	if delta > 0 {
		tx.QuantityIn = delta
		tx.Items = []LineItem{{InventoryItemID: r.InventoryItemID, Quantity: delta}}
	} else {
		tx.QuantityOut = -delta
		tx.Items = []LineItem{{InventoryItemID: r.InventoryItemID, Quantity: -delta}}
	}
	return []LedgerTransaction{tx}
}

func (b *Builder) normalizeCount(r PhysicalCountLog, item ItemMasterID, view View) []LedgerTransaction {
	if r.Status != CountCompleted || r.ReviewedAt == nil {
		return nil
	}

	var out []LedgerTransaction
	for _, line := range r.Lines {
		if !b.matches(line.InventoryItemID, item, view) {
			continue
		}
		counted := line.SystemQuantity
		if line.CountedQuantity != nil {
			counted = *line.CountedQuantity
		}
		variance := counted - line.SystemQuantity
		if variance == 0 {
			continue
		}

		tx := LedgerTransaction{
			LogID:        r.ID,
			LogTable:     r.Table(),
			Date:         *r.ReviewedAt,
			Type:         EntryCountAdjustment,
			Reference:    r.Reference,
			Details:      "Physical count variance",
			FacilityID:   r.FacilityID,
			FacilityName: b.lookups.FacilityName(r.FacilityID),
			Consignment:  view.consignment(),
		}
		if variance > 0 {
			tx.QuantityIn = variance
		} else {
			tx.QuantityOut = -variance
		}
		out = append(out, tx)
	}
	return out
}
