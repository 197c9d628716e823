package services

import (
	"context"
	"sort"

	"sheriff-scraper/config"
	"sheriff-scraper/models"
	"sheriff-scraper/storage"
	"sheriff-scraper/utils"
)

// Fetcher renders one source's listing page and returns the final HTML.
type Fetcher interface {
	Fetch(ctx context.Context, layout config.SourceLayout) (string, error)
}

// Parser extracts raw records from a rendered document.
type Parser interface {
	Parse(html string, layout config.SourceLayout) ([]*models.RawRecord, error)
}

// Pipeline runs the full scrape sequence for a source: fetch, parse,
// normalize, merge with the canonical set, enrich, persist, re-export. Each
// stage completes before the next begins; there is no background execution.
type Pipeline struct {
	sources    *config.Sources
	fetcher    Fetcher
	parser     Parser
	normalizer *Normalizer
	merger     *Merger
	store      storage.Store
	sync       *Sync
	logger     *utils.Logger
}

// NewPipeline wires the pipeline's stages together.
func NewPipeline(
	sources *config.Sources,
	fetcher Fetcher,
	parser Parser,
	normalizer *Normalizer,
	merger *Merger,
	store storage.Store,
	sync *Sync,
	logger *utils.Logger,
) *Pipeline {
	return &Pipeline{
		sources:    sources,
		fetcher:    fetcher,
		parser:     parser,
		normalizer: normalizer,
		merger:     merger,
		store:      store,
		sync:       sync,
		logger:     logger,
	}
}

// Run executes one scrape for the named source. Row-level problems are
// logged and absorbed; fetch, persistence, and sync failures abort the run
// and are returned to the caller. A failed run never touches the previously
// exported file.
func (p *Pipeline) Run(ctx context.Context, sourceID string) error {
	layout, err := p.sources.Get(sourceID)
	if err != nil {
		return err
	}

	p.logger.Info("[pipeline] %s — run started", sourceID)

	html, err := p.fetcher.Fetch(ctx, layout)
	if err != nil {
		return err
	}

	raw, err := p.parser.Parse(html, layout)
	if err != nil {
		return err
	}

	incoming := p.normalizer.Normalize(raw)

	stored, err := p.store.FetchAll()
	if err != nil {
		return &models.PersistenceError{Op: "load canonical set", Err: err}
	}
	existing := make(map[string]*models.Listing, len(stored))
	for _, l := range stored {
		existing[AddressKey(l.Address)] = l
	}

	merged := p.merger.Merge(existing, incoming)
	EnrichAll(merged)

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	ordered := make([]*models.Listing, 0, len(merged))
	for _, key := range keys {
		ordered = append(ordered, merged[key])
	}

	if err := p.store.UpsertAll(ordered); err != nil {
		return &models.PersistenceError{Op: "upsert canonical set", Err: err}
	}

	if err := p.sync.Run(); err != nil {
		return err
	}

	p.logger.Info("[pipeline] %s — run complete: %d incoming, %d canonical",
		sourceID, len(incoming), len(merged))
	return nil
}

// RunAll scrapes every configured source in order. One source failing does
// not stop the others; the first error is returned after all sources have
// been attempted.
func (p *Pipeline) RunAll(ctx context.Context) error {
	var firstErr error
	for _, id := range p.sources.IDs() {
		if err := p.Run(ctx, id); err != nil {
			p.logger.Error("[pipeline] %s failed: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
