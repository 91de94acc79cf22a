// Package filter holds the admin filter set and its two renderings: an
// in-memory predicate over joined records for display, and a SQL condition
// over the submissions (s) and invoices (i) tables for scoped deletes and
// exports. Both renderings select the same records.
package filter

import (
	"strings"

	"github.com/AhmedTUD/invoice/internal/model"
)

// Set is the admin filter. Empty fields are ignored; supplied fields are
// combined with AND.
type Set struct {
	Name     string `json:"name" query:"name"`
	Serial   string `json:"serial" query:"serial"`
	Store    string `json:"store" query:"store"`
	Model    string `json:"model" query:"model"`
	DateFrom string `json:"dateFrom" query:"dateFrom"`
	DateTo   string `json:"dateTo" query:"dateTo"`
}

// Normalize trims every field.
func (f Set) Normalize() Set {
	return Set{
		Name:     strings.TrimSpace(f.Name),
		Serial:   strings.TrimSpace(f.Serial),
		Store:    strings.TrimSpace(f.Store),
		Model:    strings.TrimSpace(f.Model),
		DateFrom: strings.TrimSpace(f.DateFrom),
		DateTo:   strings.TrimSpace(f.DateTo),
	}
}

// IsEmpty reports whether no field is set.
func (f Set) IsEmpty() bool {
	n := f.Normalize()
	return n == Set{}
}

// Match reports whether r satisfies every supplied predicate. Text fields
// match case-insensitive substrings; Store matches the store name or code.
// Dates compare as YYYY-MM-DD strings with inclusive bounds; a record without
// a sales date fails any date bound.
func (f Set) Match(r model.JoinedRecord) bool {
	f = f.Normalize()
	if f.Name != "" && !containsFold(r.Name, f.Name) {
		return false
	}
	if f.Serial != "" && !containsFold(r.Serial, f.Serial) {
		return false
	}
	if f.Store != "" && !containsFold(r.StoreName, f.Store) && !containsFold(r.StoreCode, f.Store) {
		return false
	}
	if f.Model != "" && !containsFold(r.Model, f.Model) {
		return false
	}
	if (f.DateFrom != "" || f.DateTo != "") && r.SalesDate == "" {
		return false
	}
	if f.DateFrom != "" && r.SalesDate < f.DateFrom {
		return false
	}
	if f.DateTo != "" && r.SalesDate > f.DateTo {
		return false
	}
	return true
}

// Apply returns the records matching f, preserving order. An empty set
// returns records unchanged.
func (f Set) Apply(records []model.JoinedRecord) []model.JoinedRecord {
	if f.IsEmpty() {
		return records
	}
	out := make([]model.JoinedRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
