package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stockroom/supply-engine/export"
	"github.com/stockroom/supply-engine/ledger"
)

func TestWriteLedger(t *testing.T) {
	entries := []ledger.LedgerEntry{
		{
			LedgerTransaction: ledger.LedgerTransaction{
				LogID: "D1", LogTable: ledger.CollectionDispenses,
				Date:      time.Date(2024, time.January, 5, 9, 30, 0, 0, time.UTC),
				Type:      ledger.EntryDispense,
				Reference: "DSP-001", Details: "To: Ward 3",
				FacilityName: "Main Warehouse", QuantityOut: 10,
			},
			Balance: 40,
		},
		{
			LedgerTransaction: ledger.LedgerTransaction{
				LogID: "R1", LogTable: ledger.CollectionReceives,
				Date:      time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC),
				Type:      ledger.EntryReceive,
				Reference: "RCV-001", Details: "From: Acme Corp",
				FacilityName: "Main Warehouse", QuantityIn: 50,
			},
			Balance: 50,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteLedger(&buf, "Paracetamol 500mg", 7, entries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	const sheet = "Supply Ledger"
	cell := func(ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Supply Ledger: Paracetamol 500mg", cell("A1"))
	assert.Equal(t, "Date", cell("A2"))
	assert.Equal(t, "Balance", cell("H2"))

	// Rows keep display order: newest first.
	assert.Equal(t, "Dispense", cell("B3"))
	assert.Equal(t, "", cell("F3"), "in column blank on a stock-out row")
	assert.Equal(t, "10", cell("G3"))
	assert.Equal(t, "40", cell("H3"))

	assert.Equal(t, "Receive", cell("B4"))
	assert.Equal(t, "50", cell("F4"))

	assert.Equal(t, "Balance brought forward: 7", cell("A5"))
}
