package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Field names a layout column may map to. The parser routes cell text into a
// RawRecord by these names.
const (
	FieldAddress      = "address"
	FieldCaseID       = "case_id"
	FieldDocketNumber = "docket_number"
	FieldStatusDate   = "status_date"
	FieldPlaintiff    = "plaintiff"
	FieldDefendant    = "defendant"
	FieldPrice        = "price"
)

// Layout validation errors.
var (
	ErrNoSources            = errors.New("at least one source is required")
	ErrSourceMissingID      = errors.New("source id is required")
	ErrSourceMissingURL     = errors.New("source url is required")
	ErrSourceMissingColumns = errors.New("source needs at least one column mapping")
	ErrSourceMissingAddress = errors.New("source layout must map an address column")
	ErrUnknownField         = errors.New("unknown field name in column mapping")
	ErrUnknownSource        = errors.New("unknown source")
)

// SourceLayout describes how one county's listing page is structured: where
// the listing rows are and which table column carries which field. Column
// order differs between counties (Morris swaps plaintiff and defendant), so
// the mapping is data, not code.
type SourceLayout struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	URL         string         `yaml:"url"`
	RowSelector string         `yaml:"row_selector"`
	LinkToken   string         `yaml:"link_token"`
	Columns     map[int]string `yaml:"columns"`
}

// Sources is the statically configured set of county feeds, keyed by id.
type Sources struct {
	layouts map[string]SourceLayout
	order   []string
}

type sourcesFile struct {
	Sources []SourceLayout `yaml:"sources"`
}

var validFields = map[string]bool{
	FieldAddress:      true,
	FieldCaseID:       true,
	FieldDocketNumber: true,
	FieldStatusDate:   true,
	FieldPlaintiff:    true,
	FieldDefendant:    true,
	FieldPrice:        true,
}

// LoadSources reads source layouts from a YAML file, or returns the built-in
// county set when path is empty.
func LoadSources(path string) (*Sources, error) {
	if path == "" {
		return defaultSources()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: read %q: %w", path, err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("sources: parse %q: %w", path, err)
	}

	return newSources(f.Sources)
}

func newSources(layouts []SourceLayout) (*Sources, error) {
	if len(layouts) == 0 {
		return nil, ErrNoSources
	}

	s := &Sources{layouts: make(map[string]SourceLayout, len(layouts))}
	for _, l := range layouts {
		if err := l.validate(); err != nil {
			return nil, fmt.Errorf("sources: %q: %w", l.ID, err)
		}
		s.layouts[l.ID] = l
		s.order = append(s.order, l.ID)
	}
	return s, nil
}

func (l SourceLayout) validate() error {
	if l.ID == "" {
		return ErrSourceMissingID
	}
	if l.URL == "" {
		return ErrSourceMissingURL
	}
	if len(l.Columns) == 0 {
		return ErrSourceMissingColumns
	}

	hasAddress := false
	for idx, field := range l.Columns {
		if !validFields[field] {
			return fmt.Errorf("%w: column %d maps to %q", ErrUnknownField, idx, field)
		}
		if field == FieldAddress {
			hasAddress = true
		}
	}
	if !hasAddress {
		return ErrSourceMissingAddress
	}
	return nil
}

// Get returns the layout for a source id.
func (s *Sources) Get(id string) (SourceLayout, error) {
	l, ok := s.layouts[id]
	if !ok {
		return SourceLayout{}, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	return l, nil
}

// IDs lists the configured source ids in declaration order.
func (s *Sources) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// defaultSources is the compiled-in county set. Bergen and Camden share the
// common column order; Morris publishes plaintiff and defendant transposed.
func defaultSources() (*Sources, error) {
	return newSources([]SourceLayout{
		{
			ID:          "bergen",
			Name:        "Bergen County Sheriff Sales",
			URL:         "https://salesweb.civilview.com/Sales/SalesSearch?countyId=7",
			RowSelector: "table.table tbody tr",
			LinkToken:   "PropertyId=",
			Columns: map[int]string{
				1: FieldCaseID,
				2: FieldDocketNumber,
				3: FieldStatusDate,
				4: FieldPlaintiff,
				5: FieldDefendant,
				6: FieldAddress,
			},
		},
		{
			ID:          "camden",
			Name:        "Camden County Sheriff Sales",
			URL:         "https://salesweb.civilview.com/Sales/SalesSearch?countyId=9",
			RowSelector: "table.table tbody tr",
			LinkToken:   "PropertyId=",
			Columns: map[int]string{
				1: FieldCaseID,
				2: FieldDocketNumber,
				3: FieldStatusDate,
				4: FieldPlaintiff,
				5: FieldDefendant,
				6: FieldAddress,
			},
		},
		{
			ID:          "morris",
			Name:        "Morris County Sheriff Sales",
			URL:         "https://salesweb.civilview.com/Sales/SalesSearch?countyId=14",
			RowSelector: "table.table tbody tr",
			LinkToken:   "PropertyId=",
			Columns: map[int]string{
				1: FieldCaseID,
				2: FieldDocketNumber,
				3: FieldStatusDate,
				4: FieldDefendant,
				5: FieldPlaintiff,
				6: FieldAddress,
			},
		},
	})
}
