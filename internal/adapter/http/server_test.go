package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/cwygoda/scraperr/internal/adapter/processor"
	"github.com/cwygoda/scraperr/internal/domain"
	"github.com/rs/zerolog"
)

// mockRepo implements domain.JobRepository for testing.
type mockRepo struct {
	mu   sync.Mutex
	jobs map[string]domain.JobDetail
	err  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: make(map[string]domain.JobDetail)}
}

func (m *mockRepo) Create(ctx context.Context, job *domain.JobDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockRepo) List(ctx context.Context) ([]domain.JobSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	result := []domain.JobSummary{}
	for _, job := range m.jobs {
		result = append(result, job.JobSummary)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockRepo) Get(ctx context.Context, id string) (*domain.JobDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &job, nil
}

func (m *mockRepo) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jobs = make(map[string]domain.JobDetail)
	return nil
}

func setupTestServer() (*Server, *mockRepo) {
	repo := newMockRepo()
	svc := domain.NewJobService(repo, processor.NewPlaceholder())
	return NewServer(svc, ":8000", zerolog.Nop(), []string{"http://localhost:3000"}), repo
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return resp.Detail
}

func TestServer_SubmitAndGet(t *testing.T) {
	srv, _ := setupTestServer()

	rec := do(srv, http.MethodPost, "/api/submit-scrape-job",
		`{"url":"http://example.com","elements":[{"name":"title","xpath":"//title"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var ack domain.CreateAck
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if ack.JobID == "" {
		t.Fatal("response job_id is empty")
	}
	if ack.Status != domain.StatusCompleted {
		t.Errorf("response status = %q, want %q", ack.Status, domain.StatusCompleted)
	}

	rec = do(srv, http.MethodGet, "/api/job/"+ack.JobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var detail domain.JobDetail
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if detail.ID != ack.JobID {
		t.Errorf("detail id = %q, want %q", detail.ID, ack.JobID)
	}
	if detail.Payload.URL != "http://example.com" || len(detail.Payload.Elements) != 1 {
		t.Errorf("detail payload = %+v", detail.Payload)
	}

	wantRows := []domain.ScrapedElement{{
		Name:      "title",
		XPath:     "//title",
		SourceURL: "http://example.com",
		Content:   "Sample data extracted for title",
	}}
	if len(detail.Results.ScrapedElements) != 1 || detail.Results.ScrapedElements[0] != wantRows[0] {
		t.Errorf("scraped_elements = %+v, want %+v", detail.Results.ScrapedElements, wantRows)
	}
	if got := detail.Results.Summary[0].Description; got != "Scraped 1 element(s) from http://example.com" {
		t.Errorf("summary description = %q", got)
	}
}

func TestServer_Submit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{
			name:       "missing url",
			body:       `{"elements":[]}`,
			wantDetail: "The 'url' field is required.",
		},
		{
			name:       "empty body",
			body:       "",
			wantDetail: "The 'url' field is required.",
		},
		{
			name:       "element missing xpath",
			body:       `{"url":"http://example.com","elements":[{"name":"ok","xpath":"//a"},{"name":"bad"}]}`,
			wantDetail: "Missing required element field: xpath",
		},
		{
			name:       "elements not a list",
			body:       `{"url":"http://example.com","elements":"//a"}`,
			wantDetail: "The 'elements' field must be a list.",
		},
		{
			name:       "invalid JSON",
			body:       `{"url":`,
			wantDetail: "Request body must be a JSON object.",
		},
		{
			name:       "JSON array",
			body:       `[{"url":"http://example.com"}]`,
			wantDetail: "Request body must be a JSON object.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, repo := setupTestServer()

			rec := do(srv, http.MethodPost, "/api/submit-scrape-job", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if got := decodeDetail(t, rec); got != tt.wantDetail {
				t.Errorf("detail = %q, want %q", got, tt.wantDetail)
			}
			if len(repo.jobs) != 0 {
				t.Errorf("repo has %d jobs, want 0", len(repo.jobs))
			}
		})
	}
}

func TestServer_Submit_TooLarge(t *testing.T) {
	srv, _ := setupTestServer()

	body := `{"url":"http://example.com","pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := do(srv, http.MethodPost, "/api/submit-scrape-job", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestServer_ListJobs(t *testing.T) {
	srv, _ := setupTestServer()

	rec := do(srv, http.MethodGet, "/api/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"jobs":[]}` {
		t.Errorf("empty list body = %s, want {\"jobs\":[]}", got)
	}

	for _, u := range []string{"http://a.example", "http://b.example"} {
		do(srv, http.MethodPost, "/api/submit-scrape-job", `{"url":"`+u+`"}`)
	}

	rec = do(srv, http.MethodGet, "/api/jobs", "")
	var resp listResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(resp.Jobs))
	}
	if resp.Jobs[0].CreatedAt.Before(resp.Jobs[1].CreatedAt) {
		t.Error("jobs not ordered most recent first")
	}
}

func TestServer_DeleteJobs(t *testing.T) {
	srv, repo := setupTestServer()

	do(srv, http.MethodPost, "/api/submit-scrape-job", `{"url":"http://example.com"}`)

	rec := do(srv, http.MethodDelete, "/api/delete-scrape-jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["status"] != "deleted" {
		t.Errorf("status = %q, want deleted", resp["status"])
	}
	if len(repo.jobs) != 0 {
		t.Errorf("repo has %d jobs, want 0", len(repo.jobs))
	}
}

func TestServer_GetJob_NotFound(t *testing.T) {
	srv, _ := setupTestServer()

	rec := do(srv, http.MethodGet, "/api/job/does-not-exist", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if got := decodeDetail(t, rec); got != "Job not found" {
		t.Errorf("detail = %q, want %q", got, "Job not found")
	}
}

func TestServer_UnknownRoutes(t *testing.T) {
	srv, _ := setupTestServer()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/nope"},
		{http.MethodPost, "/health"},
		{http.MethodDelete, "/api/jobs"},
		{http.MethodGet, "/api/submit-scrape-job"},
		{http.MethodPut, "/api/job/abc"},
		{http.MethodGet, "/api/job/"},
		{http.MethodHead, "/api/jobs"},
		{http.MethodHead, "/health"},
		{http.MethodPatch, "/api/jobs"},
		{http.MethodGet, "/api//jobs"},
		{http.MethodGet, "/api/./jobs"},
		{http.MethodGet, "/api/jobs/"},
		{http.MethodGet, "/api/x/../jobs"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(srv, tt.method, tt.path, "")
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
			}
			if got := decodeDetail(t, rec); got != "Endpoint not found" {
				t.Errorf("detail = %q, want %q", got, "Endpoint not found")
			}
		})
	}
}

func TestServer_StorageFault(t *testing.T) {
	srv, repo := setupTestServer()
	repo.err = errors.New("disk I/O error")

	for _, tt := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/submit-scrape-job", `{"url":"http://example.com"}`},
		{http.MethodGet, "/api/jobs", ""},
		{http.MethodGet, "/api/job/abc", ""},
		{http.MethodDelete, "/api/delete-scrape-jobs", ""},
	} {
		rec := do(srv, tt.method, tt.path, tt.body)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rec.Code, http.StatusInternalServerError)
		}
		if got := decodeDetail(t, rec); got != "Internal server error" {
			t.Errorf("%s %s detail = %q", tt.method, tt.path, got)
		}
	}
}

func TestServer_Health(t *testing.T) {
	srv, _ := setupTestServer()

	rec := do(srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestServer_Docs(t *testing.T) {
	srv, _ := setupTestServer()

	rec := do(srv, http.MethodGet, "/docs", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "/api/submit-scrape-job") {
		t.Error("docs page does not list the submit endpoint")
	}
}

func TestServer_ContentType(t *testing.T) {
	srv, _ := setupTestServer()

	rec := do(srv, http.MethodGet, "/health", "")

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _ := setupTestServer()

	req := httptest.NewRequest(http.MethodOptions, "/api/submit-scrape-job", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}
