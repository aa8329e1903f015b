package processor

import (
	"context"

	"github.com/cwygoda/scraperr/internal/domain"
)

// Placeholder is an extractor that never touches the network. It stands in
// for a real extraction engine.
type Placeholder struct{}

// NewPlaceholder creates a placeholder extractor.
func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

func (p *Placeholder) Name() string {
	return "placeholder"
}

func (p *Placeholder) Extract(ctx context.Context, elements []domain.ScrapeElement, url string) (domain.Results, error) {
	return Synthesize(elements, url), nil
}
