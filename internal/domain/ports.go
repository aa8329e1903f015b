package domain

import "context"

// JobRepository is the driven port for job persistence. Records are
// immutable once created; the only removal is DeleteAll.
type JobRepository interface {
	Create(ctx context.Context, job *JobDetail) error
	List(ctx context.Context) ([]JobSummary, error)
	Get(ctx context.Context, id string) (*JobDetail, error)
	DeleteAll(ctx context.Context) error
}

// Extractor is the driven port for producing results from a request.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, elements []ScrapeElement, url string) (Results, error)
}
