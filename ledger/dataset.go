/*
dataset.go - Collection snapshot and lookup indexes

PURPOSE:
  A Dataset is one bulk read of every collection the ledger consumes. All
  filtering and joining happens in memory against this snapshot; the
  lookup maps (batch -> item master, facility -> name) are built ONCE per
  snapshot and passed down, so the O(n) construction cost is paid once per
  ledger view rather than per row.

DOCUMENT CODEC:
  Stores persist records as JSON documents keyed by "collection/id".
  DecodeDataset turns a raw document dump into typed slices; both the
  in-memory and the SQLite store delegate to it so the wire shape stays in
  one place.

SEE ALSO:
  - store.go: Store interface producing Datasets
  - builder.go: consumes Dataset + Lookups
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// DATASET - One snapshot of all ledger-relevant collections
// =============================================================================

type Dataset struct {
	Receives        []ReceiveLog
	Dispenses       []DispenseLog
	RIS             []RISLog
	RO              []ROLog
	Transfers       []TransferLog
	WriteOffs       []WriteOffLog
	Returns         []ReturnLog
	InternalReturns []InternalReturnLog
	Adjustments     []AdjustmentLog
	PhysicalCounts  []PhysicalCountLog
	Consumptions    []ConsignmentConsumptionLog

	Batches     []InventoryBatch
	Facilities  []Facility
	ItemMasters []ItemMaster
}

// Lookups holds the indexes built once per Dataset.
type Lookups struct {
	BatchByID        map[BatchID]InventoryBatch
	FacilityNameByID map[FacilityID]string
	ItemByID         map[ItemMasterID]ItemMaster
}

// Lookups builds the index maps for this snapshot.
func (d *Dataset) Lookups() *Lookups {
	l := &Lookups{
		BatchByID:        make(map[BatchID]InventoryBatch, len(d.Batches)),
		FacilityNameByID: make(map[FacilityID]string, len(d.Facilities)),
		ItemByID:         make(map[ItemMasterID]ItemMaster, len(d.ItemMasters)),
	}
	for _, b := range d.Batches {
		l.BatchByID[b.ID] = b
	}
	for _, f := range d.Facilities {
		l.FacilityNameByID[f.ID] = f.Name
	}
	for _, im := range d.ItemMasters {
		l.ItemByID[im.ID] = im
	}
	return l
}

// FacilityName resolves a facility id for display. Dangling references
// degrade to "N/A" rather than failing the build.
func (l *Lookups) FacilityName(id FacilityID) string {
	if name, ok := l.FacilityNameByID[id]; ok && name != "" {
		return name
	}
	return NA
}

// ResolveBatch returns the batch for a line item's inventory item id.
func (l *Lookups) ResolveBatch(id BatchID) (InventoryBatch, bool) {
	b, ok := l.BatchByID[id]
	return b, ok
}

// =============================================================================
// KEY PATHS
// =============================================================================

// PathFor returns the absolute key path of a document.
func PathFor(col Collection, id string) string {
	return string(col) + "/" + id
}

// QuantityPath returns the key path of a batch's quantity field, the only
// field the purge engine mutates arithmetically.
func QuantityPath(id BatchID) string {
	return PathFor(CollectionBatches, string(id)) + "/quantity"
}

// SplitPath splits "collection/id" or "collection/id/field" into its parts.
func SplitPath(path string) (col Collection, id, field string, err error) {
	parts := strings.Split(path, "/")
	switch len(parts) {
	case 2:
		return Collection(parts[0]), parts[1], "", nil
	case 3:
		return Collection(parts[0]), parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}
}

// =============================================================================
// DOCUMENT CODEC
// =============================================================================

// DecodeDataset converts a raw document dump (collection -> id -> JSON body)
// into a typed Dataset. Documents are decoded in id order so repeated
// snapshots of the same data enumerate identically, which keeps ledger tie
// ordering deterministic.
func DecodeDataset(docs map[Collection]map[string]json.RawMessage) (*Dataset, error) {
	d := &Dataset{}
	for col, bodies := range docs {
		ids := make([]string, 0, len(bodies))
		for id := range bodies {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			if err := d.decodeDoc(col, id, bodies[id]); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func (d *Dataset) decodeDoc(col Collection, id string, body json.RawMessage) error {
	unmarshal := func(v any) error {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("%w: %s/%s: %v", ErrMalformedDocument, col, id, err)
		}
		return nil
	}

	switch col {
	case CollectionReceives:
		var r ReceiveLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.Receives = append(d.Receives, r)
	case CollectionDispenses:
		var r DispenseLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.Dispenses = append(d.Dispenses, r)
	case CollectionRIS:
		var r RISLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.RIS = append(d.RIS, r)
	case CollectionRO:
		var r ROLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.RO = append(d.RO, r)
	case CollectionTransfers:
		var r TransferLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.Transfers = append(d.Transfers, r)
	case CollectionWriteOffs:
		var r WriteOffLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.WriteOffs = append(d.WriteOffs, r)
	case CollectionReturns:
		var r ReturnLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.Returns = append(d.Returns, r)
	case CollectionInternalReturns:
		var r InternalReturnLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.InternalReturns = append(d.InternalReturns, r)
	case CollectionAdjustments:
		var r AdjustmentLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.Adjustments = append(d.Adjustments, r)
	case CollectionPhysicalCounts:
		var r PhysicalCountLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.PhysicalCounts = append(d.PhysicalCounts, r)
	case CollectionConsumptions:
		var r ConsignmentConsumptionLog
		if err := unmarshal(&r); err != nil {
			return err
		}
		d.Consumptions = append(d.Consumptions, r)
	case CollectionBatches:
		var b InventoryBatch
		if err := unmarshal(&b); err != nil {
			return err
		}
		d.Batches = append(d.Batches, b)
	case CollectionFacilities:
		var f Facility
		if err := unmarshal(&f); err != nil {
			return err
		}
		d.Facilities = append(d.Facilities, f)
	case CollectionItemMasters:
		var im ItemMaster
		if err := unmarshal(&im); err != nil {
			return err
		}
		d.ItemMasters = append(d.ItemMasters, im)
	default:
		// Unknown collections (audit trail, future additions) are ignored
		// by the snapshot decoder.
	}
	return nil
}

// FindReceive returns the receive log with the given id, if present.
func (d *Dataset) FindReceive(id LogID) (ReceiveLog, bool) {
	for _, r := range d.Receives {
		if r.ID == id {
			return r, true
		}
	}
	return ReceiveLog{}, false
}
