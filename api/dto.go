/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the internal domain
  model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request bodies carry go-playground/validator struct tags; handlers run
  the shared validator instance before touching domain logic.
*/
package api

import (
	"time"

	"github.com/stockroom/supply-engine/ledger"
)

// =============================================================================
// RESPONSES
// =============================================================================

// ItemDTO is one item-master row for the item picker.
type ItemDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

// FacilityDTO is one facility row for the facility filter.
type FacilityDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LedgerEntryDTO is one reconstructed ledger row, newest first.
type LedgerEntryDTO struct {
	LogID        string `json:"logId"`
	LogTable     string `json:"logTable"`
	Date         string `json:"date"`
	Type         string `json:"type"`
	Reference    string `json:"reference"`
	Details      string `json:"details"`
	FacilityID   string `json:"facilityId"`
	FacilityName string `json:"facilityName"`
	QuantityIn   int    `json:"quantityIn"`
	QuantityOut  int    `json:"quantityOut"`
	Balance      int    `json:"balance"`
	Purgeable    bool   `json:"isPurgeable"`
}

// LedgerResponse wraps a reconstructed ledger view.
type LedgerResponse struct {
	ItemID         string           `json:"itemId"`
	View           string           `json:"view"`
	OpeningBalance int              `json:"openingBalance"`
	Entries        []LedgerEntryDTO `json:"entries"`
}

// PurgeCheckResponse mirrors the safety checker's report.
type PurgeCheckResponse struct {
	Blocked    bool               `json:"blocked"`
	Reason     string             `json:"reason,omitempty"`
	Downstream []DownstreamRefDTO `json:"downstream,omitempty"`
}

type DownstreamRefDTO struct {
	LogID     string `json:"logId"`
	LogTable  string `json:"logTable"`
	Reference string `json:"reference"`
	Type      string `json:"type"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// PurgeRequest identifies the ledger entry to purge. Item and view are
// needed to rebuild the entry exactly as the operator saw it.
type PurgeRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	View     string `json:"view" validate:"required,oneof=main consignment"`
	LogTable string `json:"logTable" validate:"required"`
	LogID    string `json:"logId" validate:"required"`
	// Which of the log's rows was targeted; transfer logs render two.
	EntryType string `json:"entryType,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLedgerEntryDTO(e ledger.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		LogID:        string(e.LogID),
		LogTable:     string(e.LogTable),
		Date:         e.Date.Format(time.RFC3339),
		Type:         string(e.Type),
		Reference:    e.Reference,
		Details:      e.Details,
		FacilityID:   string(e.FacilityID),
		FacilityName: e.FacilityName,
		QuantityIn:   e.QuantityIn,
		QuantityOut:  e.QuantityOut,
		Balance:      e.Balance,
		Purgeable:    e.Purgeable,
	}
}

func toPurgeCheckResponse(r ledger.SafetyReport) PurgeCheckResponse {
	resp := PurgeCheckResponse{Blocked: r.Blocked, Reason: r.Reason}
	for _, d := range r.Downstream {
		resp.Downstream = append(resp.Downstream, DownstreamRefDTO{
			LogID:     string(d.LogID),
			LogTable:  string(d.Table),
			Reference: d.Reference,
			Type:      string(d.Type),
		})
	}
	return resp
}
