package models

import "time"

// RawRecord holds unprocessed field values extracted straight from a rendered
// listing table row. Everything is a string at this stage.
type RawRecord struct {
	Source       string
	Address      string
	DetailLink   string
	CaseID       string
	DocketNumber string
	StatusDate   string
	Plaintiff    string
	Defendant    string
	RawPrice     string
	ScrapedAt    time.Time
}

// Listing is the canonical, cross-run representation of one sheriff-sale
// listing, keyed by address. One row per address in both the database and
// the CSV export.
type Listing struct {
	Address      string
	Source       string
	DetailLink   string
	CaseID       string
	DocketNumber string
	StatusDate   string
	Plaintiff    string
	Defendant    string
	Price        int64

	// ExternalSearchURL is derived from the address once and then kept.
	ExternalSearchURL string

	// Detail fields come only from the manual enrichment flow, never from a
	// scrape. A re-scrape must not blank them out.
	CourtCase   string
	SaleDate    string
	Description string
	UpsetAmount string
	Attorney    string

	LastUpdated time.Time
}

// DetailUpdate carries the manually sourced per-listing fields applied
// through the detail-enrichment flow.
type DetailUpdate struct {
	CourtCase   string `json:"court_case"`
	SaleDate    string `json:"sale_date"`
	Description string `json:"description"`
	UpsetAmount string `json:"upset_amount"`
	Attorney    string `json:"attorney"`
}

// IsEmpty reports whether the update carries no field at all.
func (d DetailUpdate) IsEmpty() bool {
	return d.CourtCase == "" && d.SaleDate == "" && d.Description == "" &&
		d.UpsetAmount == "" && d.Attorney == ""
}
