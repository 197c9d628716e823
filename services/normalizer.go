package services

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"sheriff-scraper/models"
	"sheriff-scraper/utils"
)

// Normalizer turns RawRecords into canonical Listing candidates. Every
// transformation is a pure function of its input; the only side effect is
// logging degraded conversions.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts a batch of raw records. Records without an address are
// invalid and dropped before they can reach the merge step.
func (n *Normalizer) Normalize(raw []*models.RawRecord) []*models.Listing {
	result := make([]*models.Listing, 0, len(raw))

	for _, r := range raw {
		address := CollapseWhitespace(r.Address)
		if address == "" {
			n.logger.Warn("[normalizer] dropping record without address (source=%s case=%s)",
				r.Source, r.CaseID)
			continue
		}

		result = append(result, &models.Listing{
			Address:      address,
			Source:       r.Source,
			DetailLink:   strings.TrimSpace(r.DetailLink),
			CaseID:       strings.TrimSpace(r.CaseID),
			DocketNumber: strings.TrimSpace(r.DocketNumber),
			StatusDate:   n.NormalizeDate(r.StatusDate),
			Plaintiff:    CollapseWhitespace(r.Plaintiff),
			Defendant:    CollapseWhitespace(r.Defendant),
			Price:        n.NormalizePrice(r.RawPrice),
			LastUpdated:  r.ScrapedAt,
		})
	}

	n.logger.Info("[normalizer] %d raw → %d canonical candidates (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// NormalizeDate converts MM/DD/YYYY to YYYY-MM-DD. Anything that does not
// match the expected pattern passes through unchanged with a warning; the
// original string is better than nothing downstream.
func (n *Normalizer) NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	t, err := time.Parse("1/2/2006", raw)
	if err != nil {
		n.logger.Warn("[normalizer] unparsable date %q retained as-is", raw)
		return raw
	}
	return t.Format("2006-01-02")
}

// NormalizePrice strips the currency symbol and thousands separators and
// parses the remainder as a whole-dollar amount. Empty or unparsable input
// yields 0; the unparsable case is logged so the two conditions stay
// distinguishable.
func (n *Normalizer) NormalizePrice(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	cleaned := strings.ReplaceAll(raw, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	// Truncate cents when present.
	if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
		cleaned = cleaned[:dot]
	}

	val, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		n.logger.Warn("[normalizer] unparsable price %q defaulted to 0", raw)
		return 0
	}
	return val
}

// AddressKey folds an address for natural-key comparison. Display casing is
// preserved on the Listing itself; only lookups use this form.
func AddressKey(address string) string {
	return strings.ToUpper(CollapseWhitespace(address))
}

// CollapseWhitespace trims and squeezes internal whitespace runs to a single
// space.
func CollapseWhitespace(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
