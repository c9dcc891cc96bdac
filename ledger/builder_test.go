package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom/supply-engine/ledger"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================
// Shared by builder, window, safety and purge tests.

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func at(d, hour int) time.Time {
	return time.Date(2024, time.January, d, hour, 0, 0, 0, time.UTC)
}

func intp(n int) *int { return &n }

func timep(t time.Time) *time.Time { return &t }

const (
	itemM1 = ledger.ItemMasterID("M1")
	itemM2 = ledger.ItemMasterID("M2")

	facF1 = ledger.FacilityID("F1")
	facF2 = ledger.FacilityID("F2")
)

// baseDataset returns two facilities, two item masters, and four batches:
// B1/B2 regular stock of M1, B3 consignment stock of M1, B4 stock of M2.
func baseDataset() *ledger.Dataset {
	return &ledger.Dataset{
		Facilities: []ledger.Facility{
			{ID: facF1, Name: "Main Warehouse"},
			{ID: facF2, Name: "Satellite Pharmacy"},
		},
		ItemMasters: []ledger.ItemMaster{
			{ID: itemM1, Name: "Paracetamol 500mg", Unit: "tablet"},
			{ID: itemM2, Name: "Gauze Pad", Unit: "piece"},
		},
		Batches: []ledger.InventoryBatch{
			{ID: "B1", ItemMasterID: itemM1, FacilityID: facF1, Quantity: 40, BatchNumber: "LOT-1"},
			{ID: "B2", ItemMasterID: itemM1, FacilityID: facF1, Quantity: 25, BatchNumber: "LOT-2"},
			{ID: "B3", ItemMasterID: itemM1, FacilityID: facF1, Quantity: 30, BatchNumber: "LOT-3", IsConsignment: true},
			{ID: "B4", ItemMasterID: itemM2, FacilityID: facF2, Quantity: 100, BatchNumber: "LOT-4"},
		},
	}
}

func build(d *ledger.Dataset, item ledger.ItemMasterID, view ledger.View) []ledger.LedgerTransaction {
	return ledger.NewBuilder(d).BuildLedger(item, view)
}

// =============================================================================
// RECEIVE EXTRACTION
// =============================================================================

func TestBuilder_Receive_SumsMatchingLines(t *testing.T) {
	// GIVEN: a receive creating B1 (+50) and B4 (+100, different item)
	// WHEN: building the M1 ledger
	// THEN: one entry with quantityIn = 50, the M2 line excluded

	d := baseDataset()
	d.Receives = []ledger.ReceiveLog{{
		ID: "R1", Timestamp: day(1), Reference: "RCV-001", SupplierName: "Acme Corp",
		FacilityID: facF1,
		Items: []ledger.LineItem{
			{InventoryItemID: "B1", Quantity: 50},
			{InventoryItemID: "B4", Quantity: 100},
		},
		CreatedItemIDs: []ledger.BatchID{"B1", "B4"},
	}}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.EntryReceive, txs[0].Type)
	assert.Equal(t, 50, txs[0].QuantityIn)
	assert.Equal(t, 0, txs[0].QuantityOut)
	assert.Equal(t, "From: Acme Corp", txs[0].Details)
	assert.Equal(t, "Main Warehouse", txs[0].FacilityName)
	assert.True(t, txs[0].Purgeable, "receive is purgeable in the main ledger")
	assert.Equal(t, []ledger.BatchID{"B1", "B4"}, txs[0].CreatedItemIDs)
}

func TestBuilder_Receive_ConsignmentFlagSplitsViews(t *testing.T) {
	// GIVEN: one regular receive (B1) and one consignment receive (B3)
	// WHEN: building each view
	// THEN: each view sees only its own receive; the consignment view's
	//       receive is not purgeable

	d := baseDataset()
	d.Receives = []ledger.ReceiveLog{
		{
			ID: "R1", Timestamp: day(1), Reference: "RCV-001", FacilityID: facF1,
			Items:          []ledger.LineItem{{InventoryItemID: "B1", Quantity: 50}},
			CreatedItemIDs: []ledger.BatchID{"B1"},
		},
		{
			ID: "R2", Timestamp: day(2), Reference: "RCV-002", FacilityID: facF1,
			IsConsignment:  true,
			Items:          []ledger.LineItem{{InventoryItemID: "B3", Quantity: 30}},
			CreatedItemIDs: []ledger.BatchID{"B3"},
		},
	}

	main := build(d, itemM1, ledger.ViewMain)
	require.Len(t, main, 1)
	assert.Equal(t, ledger.LogID("R1"), main[0].LogID)
	assert.True(t, main[0].Purgeable)

	consignment := build(d, itemM1, ledger.ViewConsignment)
	require.Len(t, consignment, 1)
	assert.Equal(t, ledger.LogID("R2"), consignment[0].LogID)
	assert.False(t, consignment[0].Purgeable, "consignment ledger never purges receives")
}

// =============================================================================
// PER-LINE EXTRACTION (Dispense / RIS / RO / WriteOff / Return / InternalReturn)
// =============================================================================

func TestBuilder_Dispense_OneEntryPerMatchingLine(t *testing.T) {
	// GIVEN: a dispense touching B1 and B2 (both M1) plus B4 (M2)
	// WHEN: building the M1 ledger
	// THEN: two entries, one per matching line, each carrying the full
	//       raw item list for reversal

	d := baseDataset()
	d.Dispenses = []ledger.DispenseLog{{
		ID: "D1", Timestamp: day(5), Reference: "DSP-001", IssuedTo: "Ward 3",
		FacilityID: facF1,
		Items: []ledger.LineItem{
			{InventoryItemID: "B1", Quantity: 10},
			{InventoryItemID: "B2", Quantity: 5},
			{InventoryItemID: "B4", Quantity: 2},
		},
	}}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 2)
	assert.Equal(t, 10, txs[0].QuantityOut)
	assert.Equal(t, 5, txs[1].QuantityOut)
	for _, tx := range txs {
		assert.Equal(t, ledger.EntryDispense, tx.Type)
		assert.Equal(t, "To: Ward 3", tx.Details)
		assert.Equal(t, ledger.LogID("D1"), tx.LogID)
		assert.Len(t, tx.Items, 3, "reversal needs the whole log's items")
	}
}

func TestBuilder_InternalReturn_ProducesQuantityIn(t *testing.T) {
	d := baseDataset()
	d.InternalReturns = []ledger.InternalReturnLog{{
		ID: "IR1", Timestamp: day(8), Reference: "IRT-001", ReturnedBy: "Ward 3",
		FacilityID: facF1,
		Items:      []ledger.LineItem{{InventoryItemID: "B1", Quantity: 4}},
	}}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.EntryInternalReturn, txs[0].Type)
	assert.Equal(t, 4, txs[0].QuantityIn)
	assert.Equal(t, 0, txs[0].QuantityOut)
}

func TestBuilder_Dispense_ConsignmentLineOnlyInConsignmentView(t *testing.T) {
	// GIVEN: a dispense with one regular line (B1) and one consignment
	//        line (B3), both M1
	// WHEN: building each view
	// THEN: each view sees only the line whose batch matches its flag

	d := baseDataset()
	d.Dispenses = []ledger.DispenseLog{{
		ID: "D1", Timestamp: day(5), Reference: "DSP-001", IssuedTo: "OPD",
		FacilityID: facF1,
		Items: []ledger.LineItem{
			{InventoryItemID: "B1", Quantity: 10},
			{InventoryItemID: "B3", Quantity: 6},
		},
	}}

	main := build(d, itemM1, ledger.ViewMain)
	require.Len(t, main, 1)
	assert.Equal(t, 10, main[0].QuantityOut)
	assert.False(t, main[0].Consignment)

	consignment := build(d, itemM1, ledger.ViewConsignment)
	require.Len(t, consignment, 1)
	assert.Equal(t, 6, consignment[0].QuantityOut)
	assert.True(t, consignment[0].Consignment)
}

// =============================================================================
// TRANSFER EXTRACTION
// =============================================================================

func TestBuilder_Transfer_PendingHasOnlyOutRow(t *testing.T) {
	d := baseDataset()
	d.Transfers = []ledger.TransferLog{{
		ID: "T1", Timestamp: day(3), Reference: "TRF-001",
		FromFacilityID: facF1, ToFacilityID: facF2,
		Status: ledger.TransferPending,
		Items:  []ledger.TransferLine{{InventoryItemID: "B1", Quantity: 12}},
	}}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.EntryTransferOut, txs[0].Type)
	assert.Equal(t, 12, txs[0].QuantityOut)
	assert.Equal(t, facF1, txs[0].FacilityID)
	assert.True(t, txs[0].Purgeable, "pending transfer is still reversible")
}

func TestBuilder_Transfer_AcknowledgedAddsInRowAtAckTime(t *testing.T) {
	// GIVEN: a transfer acknowledged two days after sending
	// WHEN: building the ledger
	// THEN: Transfer Out at the send timestamp, Transfer In at the
	//       acknowledgement timestamp, and neither row purgeable

	d := baseDataset()
	d.Transfers = []ledger.TransferLog{{
		ID: "T1", Timestamp: day(3), Reference: "TRF-001",
		FromFacilityID: facF1, ToFacilityID: facF2,
		Status:         ledger.TransferReceived,
		AcknowledgedAt: timep(day(5)),
		Items: []ledger.TransferLine{
			{InventoryItemID: "B1", Quantity: 12, ReceivedQuantity: intp(12)},
		},
	}}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 2)

	out, in := txs[0], txs[1]
	assert.Equal(t, ledger.EntryTransferOut, out.Type)
	assert.Equal(t, day(3), out.Date)
	assert.False(t, out.Purgeable, "acknowledged transfers are immutable")

	assert.Equal(t, ledger.EntryTransferIn, in.Type)
	assert.Equal(t, day(5), in.Date)
	assert.Equal(t, facF2, in.FacilityID)
	assert.Equal(t, 12, in.QuantityIn)
}

func TestBuilder_Transfer_DiscrepancyUsesConfirmedQuantity(t *testing.T) {
	// GIVEN: 12 sent but only 9 confirmed, and a second line never
	//        confirmed at all
	// WHEN: building the ledger
	// THEN: Transfer In carries 9; the unconfirmed line contributes 0

	d := baseDataset()
	d.Transfers = []ledger.TransferLog{{
		ID: "T1", Timestamp: day(3), Reference: "TRF-001",
		FromFacilityID: facF1, ToFacilityID: facF2,
		Status:         ledger.TransferDiscrepancy,
		AcknowledgedAt: timep(day(5)),
		Items: []ledger.TransferLine{
			{InventoryItemID: "B1", Quantity: 12, ReceivedQuantity: intp(9)},
			{InventoryItemID: "B2", Quantity: 5},
		},
	}}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 2)
	assert.Equal(t, 17, txs[0].QuantityOut, "out row shows everything sent")
	assert.Equal(t, 9, txs[1].QuantityIn, "in row shows only what was confirmed")
}

// =============================================================================
// ADJUSTMENT AND PHYSICAL COUNT EXTRACTION
// =============================================================================

func TestBuilder_Adjustment_SignedDelta(t *testing.T) {
	d := baseDataset()
	d.Adjustments = []ledger.AdjustmentLog{
		{ID: "A1", Timestamp: day(10), Reference: "ADJ-001", FacilityID: facF1,
			InventoryItemID: "B1", FromQuantity: 40, ToQuantity: 38, Reason: "Broken vials"},
		{ID: "A2", Timestamp: day(11), Reference: "ADJ-002", FacilityID: facF1,
			InventoryItemID: "B1", FromQuantity: 38, ToQuantity: 45, Reason: "Recount"},
		{ID: "A3", Timestamp: day(12), Reference: "ADJ-003", FacilityID: facF1,
			InventoryItemID: "B1", FromQuantity: 45, ToQuantity: 45, Reason: "No-op"},
	}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 2, "zero-delta adjustment produces no entry")

	assert.Equal(t, 2, txs[0].QuantityOut)
	assert.Equal(t, 0, txs[0].QuantityIn)
	assert.Equal(t, 7, txs[1].QuantityIn)
	assert.Equal(t, 0, txs[1].QuantityOut)
}

func TestBuilder_PhysicalCount_OnlyCompletedReviewedNonzero(t *testing.T) {
	// GIVEN: a draft count, a completed-but-unreviewed count, and a
	//        reviewed count with one zero-variance and one short line
	// WHEN: building the ledger
	// THEN: only the short line of the reviewed count appears, and it is
	//       not purgeable

	d := baseDataset()
	d.PhysicalCounts = []ledger.PhysicalCountLog{
		{ID: "PC1", Timestamp: day(15), Reference: "CNT-001", FacilityID: facF1,
			Status: ledger.CountDraft,
			Lines:  []ledger.CountLine{{InventoryItemID: "B1", SystemQuantity: 40, CountedQuantity: intp(10)}}},
		{ID: "PC2", Timestamp: day(16), Reference: "CNT-002", FacilityID: facF1,
			Status: ledger.CountCompleted,
			Lines:  []ledger.CountLine{{InventoryItemID: "B1", SystemQuantity: 40, CountedQuantity: intp(10)}}},
		{ID: "PC3", Timestamp: day(17), Reference: "CNT-003", FacilityID: facF1,
			Status: ledger.CountCompleted, ReviewedAt: timep(day(18)),
			Lines: []ledger.CountLine{
				{InventoryItemID: "B1", SystemQuantity: 40, CountedQuantity: intp(40)},
				{InventoryItemID: "B2", SystemQuantity: 25, CountedQuantity: intp(22)},
				{InventoryItemID: "B4", SystemQuantity: 100, CountedQuantity: intp(90)},
			}},
	}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.EntryCountAdjustment, txs[0].Type)
	assert.Equal(t, 3, txs[0].QuantityOut)
	assert.Equal(t, day(18), txs[0].Date, "variance takes effect at review time")
	assert.False(t, txs[0].Purgeable)
}

func TestBuilder_PhysicalCount_BlankCountFallsBackToSystem(t *testing.T) {
	d := baseDataset()
	d.PhysicalCounts = []ledger.PhysicalCountLog{{
		ID: "PC1", Timestamp: day(15), Reference: "CNT-001", FacilityID: facF1,
		Status: ledger.CountCompleted, ReviewedAt: timep(day(16)),
		Lines:  []ledger.CountLine{{InventoryItemID: "B1", SystemQuantity: 40}},
	}}

	assert.Empty(t, build(d, itemM1, ledger.ViewMain),
		"blank counted quantity means zero variance")
}

// =============================================================================
// RESOLUTION DEGRADATION AND GLOBAL PROPERTIES
// =============================================================================

func TestBuilder_UnresolvableFacilityRendersNA(t *testing.T) {
	d := baseDataset()
	d.Receives = []ledger.ReceiveLog{{
		ID: "R1", Timestamp: day(1), Reference: "RCV-001", SupplierName: "Acme",
		FacilityID:     "F-gone",
		Items:          []ledger.LineItem{{InventoryItemID: "B1", Quantity: 50}},
		CreatedItemIDs: []ledger.BatchID{"B1"},
	}}

	txs := build(d, itemM1, ledger.ViewMain)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.NA, txs[0].FacilityName)
}

func TestBuilder_DanglingBatchReferenceIsSkipped(t *testing.T) {
	// A line pointing at a batch that no longer exists cannot be resolved
	// to any item master, so it simply never matches.
	d := baseDataset()
	d.Dispenses = []ledger.DispenseLog{{
		ID: "D1", Timestamp: day(5), Reference: "DSP-001", FacilityID: facF1,
		Items: []ledger.LineItem{{InventoryItemID: "B-gone", Quantity: 3}},
	}}

	assert.Empty(t, build(d, itemM1, ledger.ViewMain))
}

func TestBuilder_ConsumptionLogsNeverRender(t *testing.T) {
	d := baseDataset()
	d.Consumptions = []ledger.ConsignmentConsumptionLog{{
		ID: "CC1", Timestamp: day(5), SourceRef: ledger.ConsumptionRef("D1"),
		ItemMasterID: itemM1, Quantity: 6, FacilityID: facF1,
	}}

	assert.Empty(t, build(d, itemM1, ledger.ViewMain))
	assert.Empty(t, build(d, itemM1, ledger.ViewConsignment))
}

func TestBuilder_QuantityInOutMutuallyExclusive(t *testing.T) {
	// Property: no normalized transaction carries both in and out.
	d := baseDataset()
	d.Receives = []ledger.ReceiveLog{{
		ID: "R1", Timestamp: day(1), Reference: "RCV-001", FacilityID: facF1,
		Items:          []ledger.LineItem{{InventoryItemID: "B1", Quantity: 50}},
		CreatedItemIDs: []ledger.BatchID{"B1"},
	}}
	d.Dispenses = []ledger.DispenseLog{{
		ID: "D1", Timestamp: day(5), Reference: "DSP-001", FacilityID: facF1,
		Items: []ledger.LineItem{{InventoryItemID: "B1", Quantity: 10}},
	}}
	d.Transfers = []ledger.TransferLog{{
		ID: "T1", Timestamp: day(6), Reference: "TRF-001",
		FromFacilityID: facF1, ToFacilityID: facF2,
		Status: ledger.TransferReceived, AcknowledgedAt: timep(day(7)),
		Items: []ledger.TransferLine{{InventoryItemID: "B2", Quantity: 5, ReceivedQuantity: intp(5)}},
	}}
	d.Adjustments = []ledger.AdjustmentLog{{
		ID: "A1", Timestamp: day(10), Reference: "ADJ-001", FacilityID: facF1,
		InventoryItemID: "B1", FromQuantity: 40, ToQuantity: 38,
	}}

	for _, tx := range build(d, itemM1, ledger.ViewMain) {
		assert.False(t, tx.QuantityIn > 0 && tx.QuantityOut > 0,
			"%s %s has both in and out", tx.Type, tx.Reference)
	}
}
