package services

import (
	"time"

	"sheriff-scraper/models"
	"sheriff-scraper/utils"
)

// Merger fuses a freshly normalized batch into the previously canonical set.
// The union is per field and non-destructive: a value the new batch does not
// carry is never erased, and no address already known is ever removed.
type Merger struct {
	logger *utils.Logger
}

// NewMerger creates a Merger with the given logger.
func NewMerger(logger *utils.Logger) *Merger {
	return &Merger{logger: logger}
}

// Merge returns the fused canonical set, keyed by normalized address. The
// input map is not mutated. Applying the same batch twice yields the same
// result as once, and the outcome does not depend on the order of incoming
// records with distinct addresses.
func (m *Merger) Merge(existing map[string]*models.Listing, incoming []*models.Listing) map[string]*models.Listing {
	result := make(map[string]*models.Listing, len(existing)+len(incoming))
	for key, l := range existing {
		copied := *l
		result[key] = &copied
	}

	batch := make(map[string]struct{}, len(incoming))
	now := time.Now()

	for _, in := range incoming {
		key := AddressKey(in.Address)
		if key == "" {
			continue
		}
		if _, dup := batch[key]; dup {
			// One scrape should never list an address twice; counties do
			// occasionally re-list, so union the duplicates rather than abort.
			m.logger.Warn("[merger] duplicate address in one batch: %q", in.Address)
		}
		batch[key] = struct{}{}

		cur, ok := result[key]
		if !ok {
			created := *in
			created.LastUpdated = now
			result[key] = &created
			continue
		}

		fused := unionFields(cur, in)
		fused.LastUpdated = now
		result[key] = fused
	}

	m.logger.Info("[merger] canonical set: %d → %d addresses (batch of %d)",
		len(existing), len(result), len(incoming))
	return result
}

// unionFields overlays incoming onto existing field by field. Incoming wins
// only where it is non-empty; everything the batch omits — the manual detail
// fields and the derived search URL in particular — survives verbatim.
// The display address stays as first recorded: both spellings normalize to
// the same key, and keeping the stored one means the record's Address always
// matches the row the database already holds.
func unionFields(existing, incoming *models.Listing) *models.Listing {
	out := *existing

	out.Source = pick(incoming.Source, existing.Source)
	out.DetailLink = pick(incoming.DetailLink, existing.DetailLink)
	out.CaseID = pick(incoming.CaseID, existing.CaseID)
	out.DocketNumber = pick(incoming.DocketNumber, existing.DocketNumber)
	out.StatusDate = pick(incoming.StatusDate, existing.StatusDate)
	out.Plaintiff = pick(incoming.Plaintiff, existing.Plaintiff)
	out.Defendant = pick(incoming.Defendant, existing.Defendant)
	if incoming.Price != 0 {
		out.Price = incoming.Price
	}

	out.ExternalSearchURL = pick(incoming.ExternalSearchURL, existing.ExternalSearchURL)
	out.CourtCase = pick(incoming.CourtCase, existing.CourtCase)
	out.SaleDate = pick(incoming.SaleDate, existing.SaleDate)
	out.Description = pick(incoming.Description, existing.Description)
	out.UpsetAmount = pick(incoming.UpsetAmount, existing.UpsetAmount)
	out.Attorney = pick(incoming.Attorney, existing.Attorney)

	return &out
}

func pick(incoming, existing string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}
