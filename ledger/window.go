/*
window.go - Balance Reconstructor: sort, window, opening balance

PURPOSE:
  Turns the Builder's unsorted transactions into the displayed ledger:
  chronologically ordered, optionally restricted to one facility and a date
  range, with a running balance on every row. When a start date cuts the
  window, the balance of everything strictly before it is carried forward
  as the opening balance so visible balances stay correct.

ALGORITHM:
  1. Stable-sort ascending by date (ties keep source-scan order).
  2. Apply the facility filter, if any.
  3. Opening balance = signed sum of deltas strictly before the start date.
  4. Keep transactions within [start 00:00:00, end 23:59:59].
  5. Walk ascending, accumulating balance from the opening balance.
  6. Reverse before returning: the display convention is newest first.
*/
package ledger

import (
	"sort"
	"time"
)

// Window restricts the reconstructed ledger. The zero value means no
// facility filter and an unbounded date range.
type Window struct {
	Facility FacilityID // "" = all facilities
	Start    *time.Time // inclusive, truncated to start of day
	End      *time.Time // inclusive, extended to end of day
}

// startOfDay / endOfDay pin the window bounds to whole days, matching the
// date-picker semantics of the ledger pages.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// ApplyWindow computes the running-balance ledger for the window, returned
// newest first. An empty transaction set yields an empty result.
func ApplyWindow(txs []LedgerTransaction, w Window) []LedgerEntry {
	sorted := make([]LedgerTransaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	if w.Facility != "" {
		filtered := sorted[:0]
		for _, tx := range sorted {
			if tx.FacilityID == w.Facility {
				filtered = append(filtered, tx)
			}
		}
		sorted = filtered
	}

	opening := 0
	var visible []LedgerTransaction
	var start, end time.Time
	if w.Start != nil {
		start = startOfDay(*w.Start)
	}
	if w.End != nil {
		end = endOfDay(*w.End)
	}

	for _, tx := range sorted {
		if w.Start != nil && tx.Date.Before(start) {
			opening += tx.Delta()
			continue
		}
		if w.End != nil && tx.Date.After(end) {
			continue
		}
		visible = append(visible, tx)
	}

	entries := make([]LedgerEntry, 0, len(visible))
	balance := opening
	for _, tx := range visible {
		balance += tx.Delta()
		entries = append(entries, LedgerEntry{LedgerTransaction: tx, Balance: balance})
	}

	// Newest first for display.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// OpeningBalance returns just the carried-forward balance for a window,
// used by the UI to render the "balance brought forward" row.
func OpeningBalance(txs []LedgerTransaction, w Window) int {
	if w.Start == nil {
		return 0
	}
	start := startOfDay(*w.Start)
	opening := 0
	for _, tx := range txs {
		if w.Facility != "" && tx.FacilityID != w.Facility {
			continue
		}
		if tx.Date.Before(start) {
			opening += tx.Delta()
		}
	}
	return opening
}
