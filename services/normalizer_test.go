package services

import (
	"testing"
	"time"

	"sheriff-scraper/models"
	"sheriff-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger() }

func TestNormalizeDate(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	tests := []struct {
		raw  string
		want string
	}{
		{"03/14/2024", "2024-03-14"},
		{"3/7/2024", "2024-03-07"},
		{"12/31/2023", "2023-12-31"},
		{"N/A", "N/A"},
		{"2024-03-14", "2024-03-14"},
		{"TBD", "TBD"},
		{"", ""},
	}

	for _, tt := range tests {
		got := n.NormalizeDate(tt.raw)
		if got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizePrice(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	tests := []struct {
		raw  string
		want int64
	}{
		{"$1,200,500", 1200500},
		{"$250,000.00", 250000},
		{"185000", 185000},
		{"", 0},
		{"TBD", 0},
		{"$", 0},
	}

	for _, tt := range tests {
		got := n.NormalizePrice(tt.raw)
		if got != tt.want {
			t.Errorf("NormalizePrice(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestAddressKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"12 Oak St", "12 OAK ST"},
		{"  12  oak   st  ", "12 OAK ST"},
		{"12 OAK ST", "12 OAK ST"},
		{"", ""},
	}

	for _, tt := range tests {
		got := AddressKey(tt.raw)
		if got != tt.want {
			t.Errorf("AddressKey(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeDropsRecordWithoutAddress(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	raw := []*models.RawRecord{
		{Source: "bergen", Address: "   ", CaseID: "F-1", ScrapedAt: time.Now()},
		{Source: "bergen", Address: "12 Oak St", CaseID: "F-2", ScrapedAt: time.Now()},
	}

	got := n.Normalize(raw)
	if len(got) != 1 {
		t.Fatalf("expected 1 listing after dropping blank address, got %d", len(got))
	}
	if got[0].Address != "12 Oak St" {
		t.Errorf("surviving address = %q; want 12 Oak St", got[0].Address)
	}
}

func TestNormalizePreservesDisplayCasing(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	raw := []*models.RawRecord{{
		Source:     "bergen",
		Address:    "12 Oak St, Hackensack NJ",
		StatusDate: "05/20/2024",
		RawPrice:   "$310,000",
		ScrapedAt:  time.Now(),
	}}

	got := n.Normalize(raw)
	if len(got) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(got))
	}
	l := got[0]
	if l.Address != "12 Oak St, Hackensack NJ" {
		t.Errorf("display address altered: %q", l.Address)
	}
	if l.StatusDate != "2024-05-20" {
		t.Errorf("StatusDate = %q; want 2024-05-20", l.StatusDate)
	}
	if l.Price != 310000 {
		t.Errorf("Price = %d; want 310000", l.Price)
	}
}
