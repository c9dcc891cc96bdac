/*
Package ledger provides the supply ledger reconstruction engine.

PURPOSE:
  This package contains the domain types and algorithms for rebuilding a
  chronologically ordered, balance-annotated view of all stock-affecting
  events for one item master, across one or all facilities. The same engine
  serves the main supply ledger and the consignment supply ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: the closed sum of all transaction log shapes (Receive, Dispense,
    RIS, RO, Transfer, WriteOff, Return, InternalReturn, Adjustment,
    PhysicalCount, ConsignmentConsumption)
  - LedgerTransaction: a normalized log entry with signed quantity split
    into QuantityIn / QuantityOut (mutually exclusive)
  - LedgerEntry: LedgerTransaction plus the computed running balance
  - InventoryBatch: a physical stock lot, referenced (not owned) by the ledger

DESIGN PRINCIPLES:
  1. Closed sum: every log shape is a Record variant; normalization is a
     single exhaustive switch, so a new shape cannot be silently ignored.
  2. Derived balance: balance is always computed by replaying transactions,
     never stored alongside them.
  3. Type safety: strong typing for IDs prevents mixing batch, facility and
     item-master identifiers.
  4. Degraded resolution: a dangling facility/item reference renders as
     "N/A" instead of failing the whole build.

SEE ALSO:
  - builder.go: Record -> LedgerTransaction normalization
  - window.go: sorting, date windows, opening balance
  - purge.go: reversal of individual transactions
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemMasterID string
type BatchID string
type FacilityID string
type LogID string

// Collection names a top-level key-path store collection. The ledger needs
// the source collection of every entry to know where a purge must delete.
type Collection string

const (
	CollectionReceives        Collection = "receiveLogs"
	CollectionDispenses       Collection = "dispenseLogs"
	CollectionRIS             Collection = "risLogs"
	CollectionRO              Collection = "roLogs"
	CollectionTransfers       Collection = "transferLogs"
	CollectionWriteOffs       Collection = "writeOffLogs"
	CollectionReturns         Collection = "returnLogs"
	CollectionInternalReturns Collection = "internalReturnLogs"
	CollectionAdjustments     Collection = "adjustmentLogs"
	CollectionPhysicalCounts  Collection = "physicalCountLogs"
	CollectionConsumptions    Collection = "consignmentConsumptionLogs"

	CollectionBatches     Collection = "inventoryItems"
	CollectionFacilities  Collection = "facilities"
	CollectionItemMasters Collection = "itemMasters"
	CollectionAudit       Collection = "auditLogs"
)

// NA is the placeholder rendered when a facility or item-master reference
// cannot be resolved.
const NA = "N/A"

// =============================================================================
// REFERENCE ENTITIES - Owned elsewhere, read by the ledger
// =============================================================================

// InventoryBatch is a physical stock lot for one item master at one facility.
// Quantity is the net of all log-driven deltas; the ledger reads it for
// resolution and mutates it only through the store's numeric transaction
// primitive during a purge reversal.
type InventoryBatch struct {
	ID            BatchID         `json:"id"`
	ItemMasterID  ItemMasterID    `json:"itemMasterId"`
	Quantity      int             `json:"quantity"`
	FacilityID    FacilityID      `json:"storageLocationId"`
	BatchNumber   string          `json:"batchNumber"`
	ExpiryDate    *time.Time      `json:"expiryDate,omitempty"`
	PurchaseCost  decimal.Decimal `json:"purchaseCost"`
	SupplierID    string          `json:"supplierId"`
	IsConsignment bool            `json:"isConsignment"`
}

// ItemMaster is the catalog entry a batch instantiates.
type ItemMaster struct {
	ID       ItemMasterID `json:"id"`
	Name     string       `json:"name"`
	Unit     string       `json:"unit"`
	Category string       `json:"category"`
}

// Facility is a storage location (warehouse, pharmacy, ward stockroom).
type Facility struct {
	ID   FacilityID `json:"id"`
	Name string     `json:"name"`
}

// =============================================================================
// RECORD - Closed sum of transaction log shapes
// =============================================================================

// Record is implemented by every transaction log variant. The interface is
// sealed: only types in this package satisfy it, which keeps the
// normalization switch in builder.go exhaustive.
type Record interface {
	RecordID() LogID
	Table() Collection

	record()
}

// LineItem is one batch-level movement inside a log. These are the raw
// units a purge reverses.
type LineItem struct {
	InventoryItemID BatchID `json:"inventoryItemId"`
	Quantity        int     `json:"quantity"`
}

// ReceiveLog records stock arriving from a supplier. Receiving CREATES the
// batches it lists in CreatedItemIDs, which is why purging a receive deletes
// those batches outright instead of adjusting their quantity.
type ReceiveLog struct {
	ID             LogID      `json:"id"`
	Timestamp      time.Time  `json:"timestamp"`
	Reference      string     `json:"reference"`
	SupplierName   string     `json:"supplierName"`
	FacilityID     FacilityID `json:"facilityId"`
	IsConsignment  bool       `json:"isConsignment"`
	Items          []LineItem `json:"items"`
	CreatedItemIDs []BatchID  `json:"affectedInventoryItemIds"`
}

// DispenseLog records stock issued to a patient or requesting unit.
type DispenseLog struct {
	ID         LogID      `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Reference  string     `json:"reference"`
	IssuedTo   string     `json:"issuedTo"`
	FacilityID FacilityID `json:"facilityId"`
	Items      []LineItem `json:"items"`
}

// RISLog is a Requisition-and-Issuance Slip: a stock-out voucher with its
// own control-number series.
type RISLog struct {
	ID               LogID      `json:"id"`
	Timestamp        time.Time  `json:"timestamp"`
	Reference        string     `json:"reference"`
	RequestingOffice string     `json:"requestingOffice"`
	FacilityID       FacilityID `json:"facilityId"`
	Items            []LineItem `json:"items"`
}

// ROLog is a Release Order: the second alternate stock-out voucher type.
type ROLog struct {
	ID         LogID      `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Reference  string     `json:"reference"`
	ReleasedTo string     `json:"releasedTo"`
	FacilityID FacilityID `json:"facilityId"`
	Items      []LineItem `json:"items"`
}

// TransferStatus tracks the cross-facility handshake. Pending transfers have
// left the source but are not yet acknowledged; Received and Discrepancy are
// acknowledged end states.
type TransferStatus string

const (
	TransferPending     TransferStatus = "Pending"
	TransferReceived    TransferStatus = "Received"
	TransferDiscrepancy TransferStatus = "Discrepancy"
)

// TransferLine carries both the sent quantity and, once acknowledged, the
// quantity the destination actually confirmed (which differs under
// Discrepancy).
type TransferLine struct {
	InventoryItemID  BatchID `json:"inventoryItemId"`
	Quantity         int     `json:"quantity"`
	ReceivedQuantity *int    `json:"receivedQuantity,omitempty"`
}

// TransferLog records stock moving between facilities. One log yields up to
// two ledger rows: Transfer Out at the source, and Transfer In at the
// destination once acknowledged.
type TransferLog struct {
	ID             LogID          `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Reference      string         `json:"reference"`
	FromFacilityID FacilityID     `json:"fromFacilityId"`
	ToFacilityID   FacilityID     `json:"toFacilityId"`
	Status         TransferStatus `json:"status"`
	AcknowledgedAt *time.Time     `json:"acknowledgementTimestamp,omitempty"`
	Items          []TransferLine `json:"items"`
}

// WriteOffLog records stock removed for expiry, damage or loss.
type WriteOffLog struct {
	ID         LogID      `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Reference  string     `json:"reference"`
	Reason     string     `json:"reason"`
	FacilityID FacilityID `json:"facilityId"`
	Items      []LineItem `json:"items"`
}

// ReturnLog records stock sent back to a supplier (stock-out).
type ReturnLog struct {
	ID           LogID      `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Reference    string     `json:"reference"`
	SupplierName string     `json:"supplierName"`
	FacilityID   FacilityID `json:"facilityId"`
	Items        []LineItem `json:"items"`
}

// InternalReturnLog records previously issued stock coming back from a ward
// or unit (stock-in).
type InternalReturnLog struct {
	ID         LogID      `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Reference  string     `json:"reference"`
	ReturnedBy string     `json:"returnedBy"`
	FacilityID FacilityID `json:"facilityId"`
	Items      []LineItem `json:"items"`
}

// AdjustmentLog records a manual correction of one batch's quantity from
// FromQuantity to ToQuantity. The ledger delta is the signed difference.
type AdjustmentLog struct {
	ID              LogID      `json:"id"`
	Timestamp       time.Time  `json:"timestamp"`
	Reference       string     `json:"reference"`
	FacilityID      FacilityID `json:"facilityId"`
	InventoryItemID BatchID    `json:"inventoryItemId"`
	FromQuantity    int        `json:"fromQuantity"`
	ToQuantity      int        `json:"toQuantity"`
	Reason          string     `json:"reason"`
}

// CountStatus gates whether a physical count contributes variance rows.
type CountStatus string

const (
	CountDraft     CountStatus = "Draft"
	CountCompleted CountStatus = "Completed"
)

// CountLine is one counted batch. CountedQuantity is nil when the counter
// left the line blank; the variance then falls back to the system quantity
// and the line produces no ledger row.
type CountLine struct {
	InventoryItemID BatchID `json:"inventoryItemId"`
	SystemQuantity  int     `json:"systemQuantity"`
	CountedQuantity *int    `json:"countedQuantity,omitempty"`
}

// PhysicalCountLog records a stock take. Only Completed counts with a review
// timestamp contribute variance entries, and those entries are never
// purgeable.
type PhysicalCountLog struct {
	ID         LogID       `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Reference  string      `json:"reference"`
	FacilityID FacilityID  `json:"facilityId"`
	Status     CountStatus `json:"status"`
	ReviewedAt *time.Time  `json:"reviewTimestamp,omitempty"`
	Lines      []CountLine `json:"lines"`
}

// consumptionRefPrefix is prepended to the source log id when a dispense,
// RIS or RO consumes consignment stock and spawns a consumption record.
// Stripping it recovers the source log id for cascade deletion.
const consumptionRefPrefix = "src-"

// ConsignmentConsumptionLog is the supplier-billing side channel written
// whenever consignment stock is consumed. It is never rendered as its own
// ledger row; the purge engine uses it only to locate cascade targets.
type ConsignmentConsumptionLog struct {
	ID           LogID        `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	SourceRef    string       `json:"dispenseLogId"`
	ItemMasterID ItemMasterID `json:"itemMasterId"`
	Quantity     int          `json:"quantity"`
	FacilityID   FacilityID   `json:"facilityId"`
	SupplierID   string       `json:"supplierId"`
}

// ConsumptionRef derives the SourceRef value for a given source log id.
func ConsumptionRef(id LogID) string { return consumptionRefPrefix + string(id) }

// SourceLogID recovers the id of the log that spawned this consumption.
func (c ConsignmentConsumptionLog) SourceLogID() LogID {
	if len(c.SourceRef) > len(consumptionRefPrefix) && c.SourceRef[:len(consumptionRefPrefix)] == consumptionRefPrefix {
		return LogID(c.SourceRef[len(consumptionRefPrefix):])
	}
	return LogID(c.SourceRef)
}

func (r ReceiveLog) RecordID() LogID                { return r.ID }
func (r ReceiveLog) Table() Collection              { return CollectionReceives }
func (r DispenseLog) RecordID() LogID               { return r.ID }
func (r DispenseLog) Table() Collection             { return CollectionDispenses }
func (r RISLog) RecordID() LogID                    { return r.ID }
func (r RISLog) Table() Collection                  { return CollectionRIS }
func (r ROLog) RecordID() LogID                     { return r.ID }
func (r ROLog) Table() Collection                   { return CollectionRO }
func (r TransferLog) RecordID() LogID               { return r.ID }
func (r TransferLog) Table() Collection             { return CollectionTransfers }
func (r WriteOffLog) RecordID() LogID               { return r.ID }
func (r WriteOffLog) Table() Collection             { return CollectionWriteOffs }
func (r ReturnLog) RecordID() LogID                 { return r.ID }
func (r ReturnLog) Table() Collection               { return CollectionReturns }
func (r InternalReturnLog) RecordID() LogID         { return r.ID }
func (r InternalReturnLog) Table() Collection       { return CollectionInternalReturns }
func (r AdjustmentLog) RecordID() LogID             { return r.ID }
func (r AdjustmentLog) Table() Collection           { return CollectionAdjustments }
func (r PhysicalCountLog) RecordID() LogID          { return r.ID }
func (r PhysicalCountLog) Table() Collection        { return CollectionPhysicalCounts }
func (r ConsignmentConsumptionLog) RecordID() LogID { return r.ID }
func (r ConsignmentConsumptionLog) Table() Collection {
	return CollectionConsumptions
}

func (ReceiveLog) record()                {}
func (DispenseLog) record()               {}
func (RISLog) record()                    {}
func (ROLog) record()                     {}
func (TransferLog) record()               {}
func (WriteOffLog) record()               {}
func (ReturnLog) record()                 {}
func (InternalReturnLog) record()         {}
func (AdjustmentLog) record()             {}
func (PhysicalCountLog) record()          {}
func (ConsignmentConsumptionLog) record() {}

// =============================================================================
// NORMALIZED LEDGER SHAPES
// =============================================================================

// EntryType is the display label of a normalized ledger row.
type EntryType string

const (
	EntryReceive         EntryType = "Receive"
	EntryDispense        EntryType = "Dispense"
	EntryRIS             EntryType = "RIS Issue"
	EntryRO              EntryType = "Release Order"
	EntryTransferIn      EntryType = "Transfer In"
	EntryTransferOut     EntryType = "Transfer Out"
	EntryWriteOff        EntryType = "Write-Off"
	EntryReturn          EntryType = "Return to Supplier"
	EntryInternalReturn  EntryType = "Internal Return"
	EntryAdjustment      EntryType = "Adjustment"
	EntryCountAdjustment EntryType = "Count Adjustment"
)

// LedgerTransaction is the common shape every log variant normalizes into.
//
// INVARIANTS:
//   - Exactly one of QuantityIn / QuantityOut is nonzero.
//   - Items always belong to the log identified by LogID; reversal never
//     mixes line items across logs.
//   - CreatedItemIDs is populated only for Receive entries.
type LedgerTransaction struct {
	LogID    LogID      `json:"logId"`
	LogTable Collection `json:"logTable"`

	Date      time.Time `json:"date"`
	Type      EntryType `json:"type"`
	Reference string    `json:"reference"`
	Details   string    `json:"details"`

	FacilityID   FacilityID `json:"facilityId"`
	FacilityName string     `json:"facilityName"`

	QuantityIn  int `json:"quantityIn"`
	QuantityOut int `json:"quantityOut"`

	Purgeable bool `json:"isPurgeable"`

	Items          []LineItem `json:"transactionItems,omitempty"`
	CreatedItemIDs []BatchID  `json:"affectedInventoryItemIds,omitempty"`

	// Set when the entry's resolved batches are consignment stock; a purge
	// then cascades to the linked consumption records.
	Consignment bool `json:"isConsignment"`
}

// Delta returns the signed balance effect of the entry.
func (t LedgerTransaction) Delta() int { return t.QuantityIn - t.QuantityOut }

// LedgerEntry is a LedgerTransaction with its running balance inside the
// active filter window.
type LedgerEntry struct {
	LedgerTransaction
	Balance int `json:"balance"`
}
