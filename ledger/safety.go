/*
safety.go - Dependency / Safety Checker for receive purges

PURPOSE:
  Purging a receive deletes the batches it created, so anything that later
  touched those batches is affected. Before a receive purge the engine asks
  this checker two questions:

  1. BLOCKED? If any transfer that already reached an acknowledged state
     references a created batch, the purge is refused outright: stock has
     propagated to another facility and reversing the receipt would
     silently desynchronize that facility's inventory with no corrective
     path.

  2. DOWNSTREAM? Otherwise, every Dispense / RIS / RO / WriteOff / Return /
     Transfer log referencing a created batch is reported. These will be
     cascade-deleted by the purge, and the operator must see the list
     BEFORE confirming: cascade deletion is irreversible and reaches
     records the operator may not have realized were connected.
*/
package ledger

import "fmt"

// DownstreamRef identifies one transaction that would be cascade-deleted.
type DownstreamRef struct {
	LogID     LogID      `json:"logId"`
	Table     Collection `json:"logTable"`
	Reference string     `json:"reference"`
	Type      EntryType  `json:"type"`
	// All line items of the referencing transaction. The cascade reverses
	// the lines on batches that survive the purge; lines on batches being
	// deleted need no reversal.
	Items []LineItem `json:"transactionItems,omitempty"`
}

// SafetyReport is the checker's verdict on a receive purge.
type SafetyReport struct {
	Blocked    bool            `json:"blocked"`
	Reason     string          `json:"reason,omitempty"`
	Downstream []DownstreamRef `json:"downstream,omitempty"`
}

// CheckReceivePurgeSafety scans all transaction types for references to the
// batches created by the receive.
func CheckReceivePurgeSafety(d *Dataset, rcv ReceiveLog) SafetyReport {
	created := make(map[BatchID]bool, len(rcv.CreatedItemIDs))
	for _, id := range rcv.CreatedItemIDs {
		created[id] = true
	}
	if len(created) == 0 {
		return SafetyReport{}
	}

	// Acknowledged transfers block the purge entirely.
	for _, t := range d.Transfers {
		if t.Status == TransferPending {
			continue
		}
		for _, line := range t.Items {
			if created[line.InventoryItemID] {
				return SafetyReport{
					Blocked: true,
					Reason: fmt.Sprintf(
						"transfer %s has been acknowledged by the receiving facility and references stock from this receipt",
						t.Reference),
				}
			}
		}
	}

	var downstream []DownstreamRef

	collect := func(id LogID, table Collection, reference string, entryType EntryType, lines []LineItem) {
		hit := false
		for _, line := range lines {
			if created[line.InventoryItemID] {
				hit = true
				break
			}
		}
		if hit {
			downstream = append(downstream, DownstreamRef{
				LogID: id, Table: table, Reference: reference, Type: entryType, Items: lines,
			})
		}
	}

	for _, r := range d.Dispenses {
		collect(r.ID, r.Table(), r.Reference, EntryDispense, r.Items)
	}
	for _, r := range d.RIS {
		collect(r.ID, r.Table(), r.Reference, EntryRIS, r.Items)
	}
	for _, r := range d.RO {
		collect(r.ID, r.Table(), r.Reference, EntryRO, r.Items)
	}
	for _, r := range d.WriteOffs {
		collect(r.ID, r.Table(), r.Reference, EntryWriteOff, r.Items)
	}
	for _, r := range d.Returns {
		collect(r.ID, r.Table(), r.Reference, EntryReturn, r.Items)
	}
	for _, t := range d.Transfers {
		// Only pending transfers reach this point; acknowledged ones
		// blocked above.
		lines := make([]LineItem, 0, len(t.Items))
		for _, line := range t.Items {
			lines = append(lines, LineItem{InventoryItemID: line.InventoryItemID, Quantity: line.Quantity})
		}
		collect(t.ID, t.Table(), t.Reference, EntryTransferOut, lines)
	}

	return SafetyReport{Downstream: downstream}
}
