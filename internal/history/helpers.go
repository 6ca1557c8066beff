package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"clipturbo/internal/workflow"
)

func scanWorkflow(scanner interface{ Scan(dest ...any) error }) (*WorkflowRecord, error) {
	var (
		rec         WorkflowRecord
		state       string
		title       sql.NullString
		topic       sql.NullString
		errMessage  sql.NullString
		renderJobID sql.NullString
		createdRaw  string
		startedRaw  sql.NullString
		endedRaw    string
		durationMS  int64
		outputsRaw  sql.NullString
		snapshotRaw string
	)
	if err := scanner.Scan(
		&rec.ID,
		&state,
		&title,
		&topic,
		&errMessage,
		&renderJobID,
		&createdRaw,
		&startedRaw,
		&endedRaw,
		&durationMS,
		&outputsRaw,
		&snapshotRaw,
	); err != nil {
		return nil, err
	}
	rec.State = workflow.State(state)
	rec.Title = title.String
	rec.Topic = topic.String
	rec.Error = errMessage.String
	rec.RenderJobID = renderJobID.String
	rec.CreatedAt = parseTime(createdRaw)
	rec.StartedAt = parseTime(startedRaw.String)
	rec.EndedAt = parseTime(endedRaw)
	rec.TotalDuration = time.Duration(durationMS) * time.Millisecond
	if outputsRaw.Valid && outputsRaw.String != "" {
		if err := json.Unmarshal([]byte(outputsRaw.String), &rec.OutputFiles); err != nil {
			return nil, fmt.Errorf("decode output files for %s: %w", rec.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(snapshotRaw), &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
