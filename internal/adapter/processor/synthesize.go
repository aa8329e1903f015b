package processor

import (
	"fmt"

	"github.com/cwygoda/scraperr/internal/domain"
)

// Synthesize builds a placeholder result document: one row per element, in
// order, plus a single summary row. Output depends only on the arguments.
func Synthesize(elements []domain.ScrapeElement, url string) domain.Results {
	rows := make([]domain.ScrapedElement, 0, len(elements))
	for _, el := range elements {
		rows = append(rows, domain.ScrapedElement{
			Name:      el.Name,
			XPath:     el.XPath,
			SourceURL: el.SourceURL(url),
			Content:   "Sample data extracted for " + el.Name,
		})
	}

	return domain.Results{
		Summary: []domain.ResultSummary{{
			Description: fmt.Sprintf("Scraped %d element(s) from %s", len(rows), url),
			Status:      "success",
		}},
		ScrapedElements: rows,
	}
}
