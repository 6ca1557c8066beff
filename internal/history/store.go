package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"clipturbo/internal/config"
	"clipturbo/internal/render"
	"clipturbo/internal/workflow"
)

// Store manages the history archive backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// WorkflowRecord is an archived terminal workflow.
type WorkflowRecord struct {
	ID            string            `json:"id"`
	State         workflow.State    `json:"state"`
	Title         string            `json:"title,omitempty"`
	Topic         string            `json:"topic,omitempty"`
	Error         string            `json:"error,omitempty"`
	RenderJobID   string            `json:"render_job_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	StartedAt     time.Time         `json:"started_at,omitzero"`
	EndedAt       time.Time         `json:"ended_at"`
	TotalDuration time.Duration     `json:"total_duration"`
	OutputFiles   []string          `json:"output_files,omitempty"`
	Snapshot      workflow.Snapshot `json:"snapshot"`
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the archive at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// RecordWorkflow archives a terminal snapshot, replacing any earlier record
// with the same ID.
func (s *Store) RecordWorkflow(ctx context.Context, snap workflow.Snapshot) error {
	if !snap.State.Terminal() {
		return fmt.Errorf("record workflow %s: state %s is not terminal", snap.ID, snap.State)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	outputs, err := json.Marshal(snap.OutputFiles)
	if err != nil {
		return fmt.Errorf("marshal output files: %w", err)
	}
	ended := snap.EndedAt
	if ended.IsZero() {
		ended = s.now()
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO workflows (
            id, state, title, topic, error_message, render_job_id,
            created_at, started_at, ended_at, duration_ms, output_files_json, snapshot_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID,
		snap.State,
		nullableString(snap.Title),
		nullableString(snap.Input.Topic),
		nullableString(snap.Error),
		nullableString(snap.RenderJobID),
		formatTime(snap.CreatedAt),
		nullableTime(snap.StartedAt),
		formatTime(ended),
		snap.TotalDuration.Milliseconds(),
		string(outputs),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// RecordRender archives a render result.
func (s *Store) RecordRender(ctx context.Context, res render.Result) error {
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = s.now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO render_jobs (
            job_id, state, success, output_file, duration_ms, file_size,
            width, height, frame_count, error_message, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.JobID,
		res.State,
		boolToInt(res.Success),
		nullableString(res.OutputFile),
		res.Duration.Milliseconds(),
		res.FileSize,
		res.Width,
		res.Height,
		res.FrameCount,
		nullableString(res.Error),
		formatTime(finished),
	)
	if err != nil {
		return fmt.Errorf("insert render job: %w", err)
	}
	return nil
}

const workflowColumns = "id, state, title, topic, error_message, render_job_id, created_at, started_at, ended_at, duration_ms, output_files_json, snapshot_json"

// ListWorkflows returns the most recently finished workflows first.
func (s *Store) ListWorkflows(ctx context.Context, limit int) ([]WorkflowRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows ORDER BY ended_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var records []WorkflowRecord
	for rows.Next() {
		rec, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetWorkflow fetches an archived workflow. It returns nil when absent.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*WorkflowRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = ?`, id)
	rec, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return rec, nil
}

// GetRender fetches an archived render result. It returns nil when absent.
func (s *Store) GetRender(ctx context.Context, jobID string) (*render.Result, error) {
	var (
		res        render.Result
		state      string
		success    int
		outputFile sql.NullString
		durationMS int64
		errMessage sql.NullString
		finished   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, state, success, output_file, duration_ms, file_size, width, height, frame_count, error_message, finished_at
         FROM render_jobs WHERE job_id = ?`, jobID,
	).Scan(&res.JobID, &state, &success, &outputFile, &durationMS, &res.FileSize, &res.Width, &res.Height, &res.FrameCount, &errMessage, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get render job: %w", err)
	}
	res.State = render.State(state)
	res.Success = success != 0
	res.OutputFile = outputFile.String
	res.Duration = time.Duration(durationMS) * time.Millisecond
	res.Error = errMessage.String
	res.FinishedAt = parseTime(finished)
	return &res, nil
}

// Prune deletes workflows and render results that finished more than
// olderThan ago and returns how many rows were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(s.now().Add(-olderThan))
	var removed int64
	for _, stmt := range []string{
		`DELETE FROM workflows WHERE ended_at < ?`,
		`DELETE FROM render_jobs WHERE finished_at < ?`,
	} {
		res, err := s.db.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return removed, fmt.Errorf("prune history: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("prune history: %w", err)
		}
		removed += n
	}
	return removed, nil
}

// Stats counts archived workflows grouped by state.
func (s *Store) Stats(ctx context.Context) (map[workflow.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM workflows GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[workflow.State]int)
	for rows.Next() {
		var state workflow.State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}
