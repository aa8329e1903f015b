package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrCorruptRecord = errors.New("corrupt job record")
)

const createdMessage = "Scrape simulated successfully."

// JobService orchestrates job operations.
type JobService struct {
	repo      JobRepository
	extractor Extractor
	now       func() time.Time
	newID     func() string
}

// NewJobService creates a new JobService.
func NewJobService(repo JobRepository, extractor Extractor) *JobService {
	return &JobService{
		repo:      repo,
		extractor: extractor,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:     func() string { return uuid.New().String() },
	}
}

// Submit extracts results for req and stores a new completed job.
func (s *JobService) Submit(ctx context.Context, req *SubmitScrapeJobRequest) (*CreateAck, error) {
	results, err := s.extractor.Extract(ctx, req.Elements, req.URL)
	if err != nil {
		return nil, fmt.Errorf("extract with %s: %w", s.extractor.Name(), err)
	}

	job := &JobDetail{
		JobSummary: JobSummary{
			ID:        s.newID(),
			URL:       req.URL,
			Status:    StatusCompleted,
			CreatedAt: s.now(),
		},
		Payload: req.canonical(),
		Results: results,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	return &CreateAck{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		Message:   createdMessage,
	}, nil
}

// List returns all jobs, most recent first.
func (s *JobService) List(ctx context.Context) ([]JobSummary, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []JobSummary{}
	}
	return jobs, nil
}

// Get retrieves a job by ID.
func (s *JobService) Get(ctx context.Context, id string) (*JobDetail, error) {
	return s.repo.Get(ctx, id)
}

// DeleteAll removes every job.
func (s *JobService) DeleteAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete jobs: %w", err)
	}
	return nil
}
