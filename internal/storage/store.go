package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"smartjogger/internal/gps"
	"smartjogger/internal/stats"
)

// MaxQueueAttempts is how many times a queued run is processed before it is
// left behind.
const MaxQueueAttempts = 3

type Store struct {
	db *sql.DB
}

// Run is one recorded tracking session between two resets. EndedAt is zero
// while the run is still being recorded.
type Run struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Samples   int       `json:"samples"`
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own database.
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER
);
CREATE TABLE IF NOT EXISTS run_samples (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	lat REAL NOT NULL,
	lon REAL NOT NULL,
	ts INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS run_stats (
	run_id TEXT PRIMARY KEY,
	samples INTEGER NOT NULL,
	distance_km REAL NOT NULL,
	elapsed_seconds REAL NOT NULL,
	avg_speed_kmh REAL NOT NULL,
	current_speed_kmh REAL NOT NULL,
	gap_count INTEGER NOT NULL,
	gap_total_seconds INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	enqueued_at INTEGER NOT NULL,
	processed_at INTEGER,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id required")
	}
	if run.StartedAt.IsZero() {
		return errors.New("run start time required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, session_id, started_at)
VALUES (?, ?, ?)
`, run.ID, run.SessionID, run.StartedAt.UnixMilli())
	return err
}

// AppendSample stores sample after the last one recorded for runID.
func (s *Store) AppendSample(ctx context.Context, runID string, sample gps.Sample) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO run_samples (run_id, seq, lat, lon, ts)
SELECT ?, COALESCE(MAX(seq) + 1, 0), ?, ?, ?
FROM run_samples
WHERE run_id = ?
`, runID, sample.Lat, sample.Lon, sample.Time.UnixMilli(), runID)
	return err
}

func (s *Store) EndRun(ctx context.Context, runID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE runs
SET ended_at = ?
WHERE id = ? AND ended_at IS NULL
`, at.UnixMilli(), runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const runColumns = `
SELECT r.id, r.session_id, r.started_at, r.ended_at,
	(SELECT COUNT(*) FROM run_samples s WHERE s.run_id = r.id)
FROM runs r
`

func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, runColumns+`WHERE r.id = ?`, runID)
	return scanRun(row)
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, runColumns+`ORDER BY r.started_at DESC, r.id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var startedAt int64
	var endedAt sql.NullInt64
	if err := row.Scan(&run.ID, &run.SessionID, &startedAt, &endedAt, &run.Samples); err != nil {
		return Run{}, err
	}
	run.StartedAt = time.UnixMilli(startedAt)
	if endedAt.Valid {
		run.EndedAt = time.UnixMilli(endedAt.Int64)
	}
	return run, nil
}

func (s *Store) LoadRunSamples(ctx context.Context, runID string) ([]gps.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT lat, lon, ts
FROM run_samples
WHERE run_id = ?
ORDER BY seq
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []gps.Sample
	for rows.Next() {
		var p gps.Sample
		var ts int64
		if err := rows.Scan(&p.Lat, &p.Lon, &ts); err != nil {
			return nil, err
		}
		p.Time = time.UnixMilli(ts)
		samples = append(samples, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func (s *Store) EnqueueRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO run_queue (run_id, enqueued_at)
VALUES (?, ?)
`, runID, time.Now().Unix())
	return err
}

// DequeueRun returns the pending run with the fewest failed attempts, so a
// run that keeps failing never holds back the ones queued after it. Runs
// that failed MaxQueueAttempts times are no longer returned.
func (s *Store) DequeueRun(ctx context.Context) (queueID int64, runID string, err error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, run_id
FROM run_queue
WHERE processed_at IS NULL AND attempts < ?
ORDER BY attempts, id
LIMIT 1
`, MaxQueueAttempts)
	if err := row.Scan(&queueID, &runID); err != nil {
		return 0, "", err
	}
	return queueID, runID, nil
}

// MarkFailed records a failed processing attempt.
func (s *Store) MarkFailed(ctx context.Context, queueID int64, cause error) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE run_queue
SET attempts = attempts + 1, last_error = ?
WHERE id = ?
`, cause.Error(), queueID)
	return err
}

func (s *Store) MarkProcessed(ctx context.Context, queueID int64) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE run_queue
SET processed_at = ?
WHERE id = ?
`, time.Now().Unix(), queueID)
	return err
}

func (s *Store) CountQueue(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM run_queue
WHERE processed_at IS NULL AND attempts < ?
`, MaxQueueAttempts)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) UpsertRunStats(ctx context.Context, rs stats.RunStats) error {
	if rs.UpdatedAt.IsZero() {
		rs.UpdatedAt = time.Now()
	}
	sum := rs.Summary
	_, err := s.db.ExecContext(ctx, `
INSERT INTO run_stats (run_id, samples, distance_km, elapsed_seconds, avg_speed_kmh, current_speed_kmh, gap_count, gap_total_seconds, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
	samples = excluded.samples,
	distance_km = excluded.distance_km,
	elapsed_seconds = excluded.elapsed_seconds,
	avg_speed_kmh = excluded.avg_speed_kmh,
	current_speed_kmh = excluded.current_speed_kmh,
	gap_count = excluded.gap_count,
	gap_total_seconds = excluded.gap_total_seconds,
	updated_at = excluded.updated_at
`, rs.RunID, sum.Samples, sum.DistanceKm, sum.ElapsedSeconds, sum.AvgSpeedKmh, sum.CurrentSpeedKmh, rs.GapCount, rs.GapTotalSeconds, rs.UpdatedAt.Unix())
	return err
}

const runStatsColumns = `
SELECT run_id, samples, distance_km, elapsed_seconds, avg_speed_kmh, current_speed_kmh, gap_count, gap_total_seconds, updated_at
FROM run_stats
`

func (s *Store) GetRunStats(ctx context.Context, runID string) (stats.RunStats, error) {
	row := s.db.QueryRowContext(ctx, runStatsColumns+`WHERE run_id = ?`, runID)
	return scanRunStats(row)
}

func (s *Store) ListRunStats(ctx context.Context) ([]stats.RunStats, error) {
	rows, err := s.db.QueryContext(ctx, runStatsColumns+`ORDER BY updated_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []stats.RunStats
	for rows.Next() {
		rs, err := scanRunStats(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRunStats(row scanner) (stats.RunStats, error) {
	var rs stats.RunStats
	var updatedAt int64
	sum := &rs.Summary
	if err := row.Scan(&rs.RunID, &sum.Samples, &sum.DistanceKm, &sum.ElapsedSeconds, &sum.AvgSpeedKmh, &sum.CurrentSpeedKmh, &rs.GapCount, &rs.GapTotalSeconds, &updatedAt); err != nil {
		return stats.RunStats{}, err
	}
	rs.UpdatedAt = time.Unix(updatedAt, 0)
	return rs, nil
}
