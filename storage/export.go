package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"sheriff-scraper/models"
)

// exportHeader is the fixed column order of the flat export. The downstream
// application keys off these names, so order and spelling are contract.
var exportHeader = []string{
	"address", "source", "detail_link", "case_id", "docket_number",
	"status_date", "plaintiff", "defendant", "price", "external_search_url",
	"court_case", "sale_date", "description", "upset_amount", "attorney",
	"last_updated",
}

// CSVExporter regenerates the flat export file. Writes go to a temp file
// first and replace the export atomically, so a failed write can never
// clobber the previous good file.
type CSVExporter struct {
	path string
}

// NewCSVExporter creates an exporter targeting path. Intermediate
// directories are created; the file itself is not touched until Write.
func NewCSVExporter(path string) (*CSVExporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("export: create output dir: %w", err)
	}
	return &CSVExporter{path: path}, nil
}

// Path returns the export file location.
func (e *CSVExporter) Path() string { return e.path }

// Write replaces the export with the given listings. The header row is
// always written — a zero-listing export is a valid file, distinct from no
// file at all.
func (e *CSVExporter) Write(listings []*models.Listing) error {
	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".listings-*.csv")
	if err != nil {
		return fmt.Errorf("export: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(exportHeader); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("export: write header: %w", err)
	}

	for _, l := range listings {
		row := []string{
			l.Address, l.Source, l.DetailLink, l.CaseID, l.DocketNumber,
			l.StatusDate, l.Plaintiff, l.Defendant,
			strconv.FormatInt(l.Price, 10), l.ExternalSearchURL,
			l.CourtCase, l.SaleDate, l.Description, l.UpsetAmount, l.Attorney,
			l.LastUpdated.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("export: write row %q: %w", l.Address, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("export: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, e.path); err != nil {
		return fmt.Errorf("export: replace %q: %w", e.path, err)
	}
	return nil
}

// Read loads the prior export. A missing file returns (nil, nil) — the
// pipeline has never run. A file with only the header returns an empty,
// non-nil slice.
func (e *CSVExporter) Read() ([]*models.Listing, error) {
	f, err := os.Open(e.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("export: open %q: %w", e.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("export: parse %q: %w", e.path, err)
	}
	if len(rows) == 0 {
		return []*models.Listing{}, nil
	}

	// Index by header name, so a prior export written before a column was
	// added still reads cleanly.
	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	listings := make([]*models.Listing, 0, len(rows)-1)
	for _, row := range rows[1:] {
		price, _ := strconv.ParseInt(get(row, "price"), 10, 64)
		updated, _ := time.Parse(time.RFC3339, get(row, "last_updated"))
		listings = append(listings, &models.Listing{
			Address:           get(row, "address"),
			Source:            get(row, "source"),
			DetailLink:        get(row, "detail_link"),
			CaseID:            get(row, "case_id"),
			DocketNumber:      get(row, "docket_number"),
			StatusDate:        get(row, "status_date"),
			Plaintiff:         get(row, "plaintiff"),
			Defendant:         get(row, "defendant"),
			Price:             price,
			ExternalSearchURL: get(row, "external_search_url"),
			CourtCase:         get(row, "court_case"),
			SaleDate:          get(row, "sale_date"),
			Description:       get(row, "description"),
			UpsetAmount:       get(row, "upset_amount"),
			Attorney:          get(row, "attorney"),
			LastUpdated:       updated,
		})
	}
	return listings, nil
}
