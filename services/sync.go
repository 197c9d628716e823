package services

import (
	"sort"

	"sheriff-scraper/models"
	"sheriff-scraper/storage"
	"sheriff-scraper/utils"
)

// Sync reconciles the relational store with the flat export. The store is
// authoritative for every field it tracks; export-only enrichment values are
// carried forward when the store has none. The export file is replaced only
// after the whole join succeeds.
type Sync struct {
	store    storage.Store
	exporter storage.Exporter
	logger   *utils.Logger
}

// NewSync creates a Sync over the given store and exporter.
func NewSync(store storage.Store, exporter storage.Exporter, logger *utils.Logger) *Sync {
	return &Sync{store: store, exporter: exporter, logger: logger}
}

// Run regenerates the export from the store. Any failure before the final
// write leaves the previous export untouched and comes back as *SyncError.
func (s *Sync) Run() error {
	stored, err := s.store.FetchAll()
	if err != nil {
		return &models.SyncError{Op: "read store", Err: err}
	}

	prior, err := s.exporter.Read()
	if err != nil {
		return &models.SyncError{Op: "read prior export", Err: err}
	}

	priorByKey := make(map[string]*models.Listing, len(prior))
	for _, l := range prior {
		priorByKey[AddressKey(l.Address)] = l
	}

	merged := make([]*models.Listing, 0, len(stored))
	carried := 0
	for _, l := range stored {
		out := *l
		if old, ok := priorByKey[AddressKey(l.Address)]; ok {
			// Historically the export carried the search URL before the
			// store grew a column for it; never lose it on regeneration.
			if out.ExternalSearchURL == "" && old.ExternalSearchURL != "" {
				out.ExternalSearchURL = old.ExternalSearchURL
				carried++
			}
			delete(priorByKey, AddressKey(l.Address))
		}
		merged = append(merged, &out)
	}

	for key := range priorByKey {
		s.logger.Warn("[sync] export row %q has no store counterpart — dropped from export", key)
	}

	sort.Slice(merged, func(i, j int) bool {
		return AddressKey(merged[i].Address) < AddressKey(merged[j].Address)
	})

	if err := s.exporter.Write(merged); err != nil {
		return &models.SyncError{Op: "write export", Err: err}
	}

	s.logger.Info("[sync] export rewritten: %d rows (%d enrichment values carried forward)",
		len(merged), carried)
	return nil
}
