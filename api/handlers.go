/*
handlers.go - HTTP handlers for the supply ledger API

PURPOSE:
  Exposes the ledger engine over REST. Handlers parse and validate input,
  take one store snapshot per request, delegate to the ledger package, and
  serialize the result.

REQUEST FLOW:
  1. Parse query/body
  2. Validate (go-playground/validator for bodies)
  3. Snapshot the store, run builder / reconstructor / engine
  4. Serialize response
  5. Map domain errors to HTTP status codes

ERROR MAPPING:
  400  validation errors, unpurgeable entries
  401  missing/invalid token (auth.go)
  403  wrong role, unauthorized capability
  404  unknown log id (including a second purge of the same id)
  409  purge blocked by an acknowledged transfer
  500  store failures; partial purge failures (with the failed sub-steps)

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: routing and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/stockroom/supply-engine/export"
	"github.com/stockroom/supply-engine/ledger"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.Store
	Engine   *ledger.Engine
	Log      logrus.FieldLogger
	Validate *validator.Validate
}

// NewHandler creates a handler around the given store and purge engine.
func NewHandler(store ledger.Store, engine *ledger.Engine, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:    store,
		Engine:   engine,
		Log:      log,
		Validate: validator.New(),
	}
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

// ListItems returns the item masters for the item picker.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	d, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	items := make([]ItemDTO, 0, len(d.ItemMasters))
	for _, im := range d.ItemMasters {
		items = append(items, ItemDTO{
			ID: string(im.ID), Name: im.Name, Unit: im.Unit, Category: im.Category,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// ListFacilities returns the facilities for the facility filter.
func (h *Handler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	d, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	facilities := make([]FacilityDTO, 0, len(d.Facilities))
	for _, f := range d.Facilities {
		facilities = append(facilities, FacilityDTO{ID: string(f.ID), Name: f.Name})
	}
	writeJSON(w, http.StatusOK, facilities)
}

// ledgerQuery is the parsed query string shared by GetLedger and
// ExportLedger.
type ledgerQuery struct {
	item   ledger.ItemMasterID
	view   ledger.View
	window ledger.Window
}

func parseLedgerQuery(r *http.Request) (ledgerQuery, error) {
	q := r.URL.Query()

	item := q.Get("item")
	if item == "" {
		return ledgerQuery{}, fmt.Errorf("item is required")
	}

	view := ledger.ViewMain
	switch q.Get("view") {
	case "", "main":
	case "consignment":
		view = ledger.ViewConsignment
	default:
		return ledgerQuery{}, fmt.Errorf("view must be main or consignment")
	}

	window := ledger.Window{Facility: ledger.FacilityID(q.Get("facility"))}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{
		{"start", &window.Start},
		{"end", &window.End},
	} {
		if raw := q.Get(bound.name); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return ledgerQuery{}, fmt.Errorf("%s must be YYYY-MM-DD", bound.name)
			}
			*bound.dst = &t
		}
	}

	return ledgerQuery{item: ledger.ItemMasterID(item), view: view, window: window}, nil
}

// GetLedger returns the reconstructed, balance-annotated ledger for one
// item, newest first.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	query, err := parseLedgerQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	txs := ledger.NewBuilder(d).BuildLedger(query.item, query.view)
	entries := ledger.ApplyWindow(txs, query.window)

	resp := LedgerResponse{
		ItemID:         string(query.item),
		View:           string(query.view),
		OpeningBalance: ledger.OpeningBalance(txs, query.window),
		Entries:        make([]LedgerEntryDTO, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toLedgerEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportLedger streams the same view as a spreadsheet download.
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	query, err := parseLedgerQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	builder := ledger.NewBuilder(d)
	txs := builder.BuildLedger(query.item, query.view)
	entries := ledger.ApplyWindow(txs, query.window)

	itemName := string(query.item)
	if im, ok := builder.Lookups().ItemByID[query.item]; ok {
		itemName = im.Name
	}

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "supply-ledger-"+string(query.item)+".xlsx"))
	if err := export.WriteLedger(w, itemName, ledger.OpeningBalance(txs, query.window), entries); err != nil {
		h.Log.WithError(err).Error("ledger export failed")
	}
}

// =============================================================================
// PURGE ENDPOINTS (admin only; see server.go for the role gate)
// =============================================================================

// CheckPurge returns the safety report for a receive purge so the UI can
// show the operator what a confirmation would destroy.
func (h *Handler) CheckPurge(w http.ResponseWriter, r *http.Request) {
	id := ledger.LogID(r.URL.Query().Get("logId"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "logId is required")
		return
	}

	d, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	rcv, ok := d.FindReceive(id)
	if !ok {
		writeError(w, http.StatusNotFound, "receive log not found")
		return
	}

	writeJSON(w, http.StatusOK, toPurgeCheckResponse(ledger.CheckReceivePurgeSafety(d, rcv)))
}

// Purge deletes a transaction log and reverses its inventory effect.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	auth, err := ledger.NewPurgeAuthorization(ActorFrom(r.Context()), RoleFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	d, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	entry, ok := findEntry(d, req)
	if !ok {
		writeError(w, http.StatusNotFound, "ledger entry not found")
		return
	}

	if err := h.Engine.Purge(r.Context(), auth, d, entry); err != nil {
		h.purgeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findEntry rebuilds the requested view and locates the targeted row.
func findEntry(d *ledger.Dataset, req PurgeRequest) (ledger.LedgerEntry, bool) {
	txs := ledger.NewBuilder(d).BuildLedger(ledger.ItemMasterID(req.ItemID), ledger.View(req.View))
	for _, tx := range txs {
		if tx.LogID != ledger.LogID(req.LogID) || tx.LogTable != ledger.Collection(req.LogTable) {
			continue
		}
		if req.EntryType != "" && tx.Type != ledger.EntryType(req.EntryType) {
			continue
		}
		return ledger.LedgerEntry{LedgerTransaction: tx}, true
	}
	return ledger.LedgerEntry{}, false
}

// =============================================================================
// ERROR MAPPING / SERIALIZATION
// =============================================================================

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	h.Log.WithError(err).Error("store snapshot failed")
	writeError(w, http.StatusInternalServerError, "store unavailable")
}

func (h *Handler) purgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrNotPurgeable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrLogNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrPurgeBlocked):
		writeError(w, http.StatusConflict, err.Error())
	default:
		// Includes PartialPurgeError: the body names the failed sub-steps
		// so the operator knows what to reconcile.
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
