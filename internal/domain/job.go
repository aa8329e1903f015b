package domain

import "time"

// JobStatus represents the processing state of a job.
type JobStatus string

// StatusCompleted is the only state a job can be in today: results are
// produced synchronously when the job is created.
const StatusCompleted JobStatus = "completed"

// ScrapeElement is one named extraction target within a job.
type ScrapeElement struct {
	Name  string  `json:"name"`
	XPath string  `json:"xpath"`
	URL   *string `json:"url"`
}

// SourceURL returns the element's own URL if set, otherwise fallback.
func (e ScrapeElement) SourceURL(fallback string) string {
	if e.URL != nil && *e.URL != "" {
		return *e.URL
	}
	return fallback
}

// JobOptions is descriptive job metadata.
type JobOptions struct {
	MultiPageScrape bool              `json:"multi_page_scrape"`
	CustomHeaders   map[string]string `json:"custom_headers"`
}

// SubmitScrapeJobRequest is the unit of intake. Its JSON form is also the
// persisted payload of a job.
type SubmitScrapeJobRequest struct {
	URL        string          `json:"url"`
	Elements   []ScrapeElement `json:"elements"`
	JobOptions JobOptions      `json:"job_options"`
}

// canonical returns a copy of r with absent collections set to their empty
// values, matching what ParseSubmitRequest produces.
func (r SubmitScrapeJobRequest) canonical() SubmitScrapeJobRequest {
	if r.Elements == nil {
		r.Elements = []ScrapeElement{}
	}
	if r.JobOptions.CustomHeaders == nil {
		r.JobOptions.CustomHeaders = map[string]string{}
	}
	return r
}

// JobSummary is the listing projection of a job.
type JobSummary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// JobDetail is a full job record: the summary plus the original request
// and the extraction results.
type JobDetail struct {
	JobSummary
	Payload SubmitScrapeJobRequest `json:"request_payload"`
	Results Results                `json:"results"`
}

// CreateAck acknowledges a newly created job.
type CreateAck struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// Results is the result document stored with every job.
type Results struct {
	Summary         []ResultSummary  `json:"summary"`
	ScrapedElements []ScrapedElement `json:"scraped_elements"`
}

// ResultSummary describes a whole extraction run.
type ResultSummary struct {
	Description string `json:"description"`
	Status      string `json:"status"`
}

// ScrapedElement is one extracted value.
type ScrapedElement struct {
	Name      string `json:"name"`
	XPath     string `json:"xpath"`
	SourceURL string `json:"source_url"`
	Content   string `json:"content"`
}
