package services

import (
	"regexp"
	"strings"

	"sheriff-scraper/models"
)

const searchURLTemplate = "https://www.zillow.com/homes/%s_rb/"

var nonSlugRunes = regexp.MustCompile(`[^a-z0-9\s-]+`)

// DeriveSearchURL builds the external property-search URL for an address.
// Same address in, same URL out, always.
func DeriveSearchURL(address string) string {
	slug := strings.ToLower(strings.TrimSpace(address))
	slug = nonSlugRunes.ReplaceAllString(slug, "")
	slug = strings.Join(strings.Fields(slug), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return ""
	}
	return strings.Replace(searchURLTemplate, "%s", slug, 1)
}

// EnrichAll fills ExternalSearchURL on records that do not have one yet.
// A populated value is never recomputed or overwritten.
func EnrichAll(listings map[string]*models.Listing) {
	for _, l := range listings {
		if l.ExternalSearchURL == "" {
			l.ExternalSearchURL = DeriveSearchURL(l.Address)
		}
	}
}
