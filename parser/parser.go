package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sheriff-scraper/config"
	"sheriff-scraper/models"
	"sheriff-scraper/utils"
)

// Parser extracts raw listing records from a rendered sales page. Column
// positions come from the source's layout descriptor, so a county that
// orders its table differently needs a config change, not a code change.
type Parser struct {
	logger *utils.Logger
}

// NewParser creates a Parser with the given logger.
func NewParser(logger *utils.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse walks the listing rows selected by the layout and extracts one
// RawRecord per well-formed row. Rows are independent: a malformed row is
// logged and skipped, the batch continues.
func (p *Parser) Parse(html string, layout config.SourceLayout) ([]*models.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parser: build document for %s: %w", layout.ID, err)
	}

	now := time.Now()
	var records []*models.RawRecord
	skipped := 0

	doc.Find(layout.RowSelector).Each(func(i int, row *goquery.Selection) {
		rec, err := p.parseRow(row, layout, now)
		if err != nil {
			p.logger.Warn("[parser] %s row %d skipped: %v", layout.ID, i, err)
			skipped++
			return
		}
		records = append(records, rec)
	})

	p.logger.Info("[parser] %s — %d records extracted, %d rows skipped",
		layout.ID, len(records), skipped)
	return records, nil
}

func (p *Parser) parseRow(row *goquery.Selection, layout config.SourceLayout, now time.Time) (*models.RawRecord, error) {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return nil, fmt.Errorf("no cells")
	}

	maxIdx := 0
	for idx := range layout.Columns {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	if cells.Length() <= maxIdx {
		return nil, fmt.Errorf("expected at least %d cells, got %d", maxIdx+1, cells.Length())
	}

	rec := &models.RawRecord{Source: layout.ID, ScrapedAt: now}
	for idx, field := range layout.Columns {
		text := strings.TrimSpace(cells.Eq(idx).Text())
		switch field {
		case config.FieldAddress:
			rec.Address = text
		case config.FieldCaseID:
			rec.CaseID = text
		case config.FieldDocketNumber:
			rec.DocketNumber = text
		case config.FieldStatusDate:
			rec.StatusDate = text
		case config.FieldPlaintiff:
			rec.Plaintiff = text
		case config.FieldDefendant:
			rec.Defendant = text
		case config.FieldPrice:
			rec.RawPrice = text
		}
	}

	if rec.Address == "" {
		return nil, fmt.Errorf("no extractable address")
	}

	link, err := detailLink(row, layout.LinkToken)
	if err != nil {
		return nil, err
	}
	rec.DetailLink = link

	return rec, nil
}

// detailLink pulls the row's detail-page href and checks it carries the
// property identifier token. A link without the token points somewhere
// useless (sort headers, pagination), so the row is rejected.
func detailLink(row *goquery.Selection, token string) (string, error) {
	href, ok := row.Find("a[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("no detail link")
	}
	href = strings.TrimSpace(href)
	if token != "" && !strings.Contains(href, token) {
		return "", fmt.Errorf("detail link %q missing identifier token %q", href, token)
	}
	return href, nil
}
