package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwygoda/scraperr/internal/domain"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const createTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id         TEXT PRIMARY KEY,
    url        TEXT NOT NULL,
    payload    TEXT NOT NULL,
    status     TEXT NOT NULL,
    created_at TEXT NOT NULL,
    results    TEXT NOT NULL
)`

const createIndex = `CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`

var requiredColumns = []string{"id", "url", "payload", "status", "created_at", "results"}

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// ErrSchemaMismatch is returned when an existing jobs table lacks required
// columns and the policy forbids recreating it.
var ErrSchemaMismatch = errors.New("jobs table schema mismatch")

// SchemaPolicy decides what bootstrap does with an incompatible jobs table.
type SchemaPolicy string

const (
	// SchemaFail refuses to start, leaving existing data untouched.
	SchemaFail SchemaPolicy = "fail"
	// SchemaRecreate drops the table and creates it again. All stored jobs are lost.
	SchemaRecreate SchemaPolicy = "recreate"
)

// ParseSchemaPolicy validates a policy name.
func ParseSchemaPolicy(s string) (SchemaPolicy, error) {
	switch p := SchemaPolicy(s); p {
	case SchemaFail, SchemaRecreate:
		return p, nil
	default:
		return "", fmt.Errorf("unknown schema policy %q (want %q or %q)", s, SchemaFail, SchemaRecreate)
	}
}

// Repository implements domain.JobRepository using SQLite.
//
// Writes and schema bootstrap hold the lock exclusively, reads share it.
// Every operation checks out its own connection and returns it before
// releasing the lock.
type Repository struct {
	db  *sql.DB
	mu  sync.RWMutex
	log zerolog.Logger
}

// New opens the database at dbPath and bootstraps the jobs table.
func New(dbPath string, policy SchemaPolicy, log zerolog.Logger) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	r := &Repository{db: db, log: log}
	if err := r.bootstrap(context.Background(), policy); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) withConn(ctx context.Context, write bool, fn func(*sql.Conn) error) error {
	if write {
		r.mu.Lock()
		defer r.mu.Unlock()
	} else {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

func (r *Repository) bootstrap(ctx context.Context, policy SchemaPolicy) error {
	return r.withConn(ctx, true, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, createTable); err != nil {
			return fmt.Errorf("create jobs table: %w", err)
		}

		missing, err := missingColumns(ctx, conn)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			if policy != SchemaRecreate {
				return fmt.Errorf("%w: missing columns %v", ErrSchemaMismatch, missing)
			}
			r.log.Warn().Strs("missing", missing).Msg("jobs table incompatible, dropping all stored jobs")
			if err := recreate(ctx, conn); err != nil {
				return err
			}
		}

		if _, err := conn.ExecContext(ctx, createIndex); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		return nil
	})
}

func missingColumns(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx, `PRAGMA table_info(jobs)`)
	if err != nil {
		return nil, fmt.Errorf("inspect jobs table: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, col := range requiredColumns {
		if !existing[col] {
			missing = append(missing, col)
		}
	}
	return missing, nil
}

func recreate(ctx context.Context, conn *sql.Conn) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE jobs`); err != nil {
		return fmt.Errorf("drop jobs table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("recreate jobs table: %w", err)
	}
	return tx.Commit()
}

// Create inserts a new job.
func (r *Repository) Create(ctx context.Context, job *domain.JobDetail) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	results, err := json.Marshal(job.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	return r.withConn(ctx, true, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO jobs (id, url, payload, status, created_at, results) VALUES (?, ?, ?, ?, ?, ?)`,
			job.ID, job.URL, string(payload), string(job.Status), formatTime(job.CreatedAt), string(results),
		)
		return err
	})
}

// List returns job summaries, most recent first.
func (r *Repository) List(ctx context.Context) ([]domain.JobSummary, error) {
	jobs := []domain.JobSummary{}
	err := r.withConn(ctx, false, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, url, status, created_at FROM jobs ORDER BY created_at DESC, rowid DESC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				job       domain.JobSummary
				status    string
				createdAt string
			)
			if err := rows.Scan(&job.ID, &job.URL, &status, &createdAt); err != nil {
				return err
			}
			job.Status = domain.JobStatus(status)
			if job.CreatedAt, err = parseTime(createdAt); err != nil {
				return fmt.Errorf("job %s: %w", job.ID, err)
			}
			jobs = append(jobs, job)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Get retrieves a job by ID.
func (r *Repository) Get(ctx context.Context, id string) (*domain.JobDetail, error) {
	var job *domain.JobDetail
	err := r.withConn(ctx, false, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT id, url, status, created_at, payload, results FROM jobs WHERE id = ?`, id,
		)
		var err error
		job, err = scanJob(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// DeleteAll removes every job.
func (r *Repository) DeleteAll(ctx context.Context) error {
	return r.withConn(ctx, true, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM jobs`)
		return err
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.JobDetail, error) {
	var (
		job       domain.JobDetail
		status    string
		createdAt string
		payload   string
		results   string
	)
	err := row.Scan(&job.ID, &job.URL, &status, &createdAt, &payload, &results)
	if err == sql.ErrNoRows {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)

	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	req, err := domain.ParseSubmitRequestJSON([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: job %s payload: %v", domain.ErrCorruptRecord, job.ID, err)
	}
	job.Payload = *req
	if err := json.Unmarshal([]byte(results), &job.Results); err != nil {
		return nil, fmt.Errorf("%w: job %s results: %v", domain.ErrCorruptRecord, job.ID, err)
	}
	return &job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: created_at %q", domain.ErrCorruptRecord, s)
	}
	return t.UTC(), nil
}
