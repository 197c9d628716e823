package services

import (
	"reflect"
	"testing"
	"time"

	"sheriff-scraper/models"
)

func TestMergeInsertsNewAddress(t *testing.T) {
	m := NewMerger(newTestLogger())

	got := m.Merge(map[string]*models.Listing{}, []*models.Listing{
		{Address: "12 Oak St", Source: "bergen", Price: 250000},
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(got))
	}
	l, ok := got["12 OAK ST"]
	if !ok {
		t.Fatal("listing not keyed by normalized address")
	}
	if l.Price != 250000 {
		t.Errorf("Price = %d; want 250000", l.Price)
	}
	if l.LastUpdated.IsZero() {
		t.Error("LastUpdated not stamped on insert")
	}
}

func TestMergePreservesEnrichmentFields(t *testing.T) {
	m := NewMerger(newTestLogger())

	existing := map[string]*models.Listing{
		"12 OAK ST": {
			Address:           "12 Oak St",
			Source:            "bergen",
			ExternalSearchURL: "https://www.zillow.com/homes/12-oak-st_rb/",
			Attorney:          "Stern & Co.",
			SaleDate:          "2024-06-01",
		},
	}

	// Fresh scrape knows the price but carries none of the enrichment.
	got := m.Merge(existing, []*models.Listing{
		{Address: "12 Oak St", Source: "bergen", Price: 250000},
	})

	l := got["12 OAK ST"]
	if l.Price != 250000 {
		t.Errorf("Price = %d; want 250000", l.Price)
	}
	if l.ExternalSearchURL != "https://www.zillow.com/homes/12-oak-st_rb/" {
		t.Errorf("ExternalSearchURL lost: %q", l.ExternalSearchURL)
	}
	if l.Attorney != "Stern & Co." {
		t.Errorf("Attorney lost: %q", l.Attorney)
	}
	if l.SaleDate != "2024-06-01" {
		t.Errorf("SaleDate lost: %q", l.SaleDate)
	}
}

func TestMergeRecasedAddressCollapsesToStoredRow(t *testing.T) {
	m := NewMerger(newTestLogger())

	existing := map[string]*models.Listing{
		"12 OAK ST": {Address: "12 Oak St", Source: "bergen", Attorney: "Stern & Co."},
	}

	// The county re-rendered the same property in shout-case.
	got := m.Merge(existing, []*models.Listing{
		{Address: "12 OAK ST", Source: "bergen", Price: 250000},
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(got))
	}
	l := got["12 OAK ST"]
	if l.Address != "12 Oak St" {
		t.Errorf("Address = %q; want the stored display form %q", l.Address, "12 Oak St")
	}
	if l.Price != 250000 {
		t.Errorf("Price = %d; want 250000", l.Price)
	}
	if l.Attorney != "Stern & Co." {
		t.Errorf("Attorney lost: %q", l.Attorney)
	}
}

func TestMergeNeverShrinksKeySet(t *testing.T) {
	m := NewMerger(newTestLogger())

	set := m.Merge(map[string]*models.Listing{}, []*models.Listing{
		{Address: "12 Oak St", Source: "bergen"},
		{Address: "47 Maple Ave", Source: "bergen"},
	})

	// Second batch mentions a different county's addresses only.
	set = m.Merge(set, []*models.Listing{
		{Address: "9 Birch Ln", Source: "morris"},
	})

	for _, key := range []string{"12 OAK ST", "47 MAPLE AVE", "9 BIRCH LN"} {
		if _, ok := set[key]; !ok {
			t.Errorf("address %q missing from merged set", key)
		}
	}
	if len(set) != 3 {
		t.Errorf("expected 3 addresses, got %d", len(set))
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	m := NewMerger(newTestLogger())

	existing := map[string]*models.Listing{
		"12 OAK ST": {Address: "12 Oak St", Source: "bergen", Plaintiff: "WELLS FARGO"},
	}
	batch := []*models.Listing{
		{Address: "12 Oak St", Source: "bergen", Price: 250000},
		{Address: "47 Maple Ave", Source: "bergen", Price: 185000},
	}

	once := m.Merge(existing, batch)
	twice := m.Merge(once, batch)

	stripTimestamps(once)
	stripTimestamps(twice)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge applied twice differs from once:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeOrderIndependentAcrossAddresses(t *testing.T) {
	m := NewMerger(newTestLogger())

	batch := []*models.Listing{
		{Address: "12 Oak St", Source: "bergen", Price: 250000},
		{Address: "47 Maple Ave", Source: "bergen", Price: 185000},
		{Address: "9 Birch Ln", Source: "bergen", Price: 99000},
	}
	reversed := []*models.Listing{batch[2], batch[1], batch[0]}

	a := m.Merge(map[string]*models.Listing{}, batch)
	b := m.Merge(map[string]*models.Listing{}, reversed)

	stripTimestamps(a)
	stripTimestamps(b)
	if !reflect.DeepEqual(a, b) {
		t.Error("merge result depends on incoming record order")
	}
}

func TestMergeDoesNotMutateExisting(t *testing.T) {
	m := NewMerger(newTestLogger())

	orig := &models.Listing{Address: "12 Oak St", Source: "bergen", Price: 100}
	existing := map[string]*models.Listing{"12 OAK ST": orig}

	m.Merge(existing, []*models.Listing{
		{Address: "12 Oak St", Source: "bergen", Price: 250000},
	})

	if orig.Price != 100 {
		t.Errorf("input map was mutated: Price = %d", orig.Price)
	}
}

func TestMergeDuplicateAddressInOneBatch(t *testing.T) {
	m := NewMerger(newTestLogger())

	got := m.Merge(map[string]*models.Listing{}, []*models.Listing{
		{Address: "12 Oak St", Source: "bergen", Plaintiff: "WELLS FARGO"},
		{Address: "12 OAK ST", Source: "bergen", Price: 250000},
	})

	if len(got) != 1 {
		t.Fatalf("expected duplicates to collapse to 1 listing, got %d", len(got))
	}
	l := got["12 OAK ST"]
	if l.Plaintiff != "WELLS FARGO" || l.Price != 250000 {
		t.Errorf("duplicates not unioned: %+v", l)
	}
}

func stripTimestamps(set map[string]*models.Listing) {
	for _, l := range set {
		l.LastUpdated = time.Time{}
	}
}
