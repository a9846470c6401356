package storage

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
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS playlists (
  id TEXT PRIMARY KEY,
  youtube_id TEXT NOT NULL,
  title TEXT NOT NULL,
  url TEXT NOT NULL,
  total_videos INTEGER NOT NULL,
  total_duration_seconds INTEGER NOT NULL,
  thumbnail_url TEXT,
  created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS videos (
  id TEXT PRIMARY KEY,
  playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
  youtube_id TEXT NOT NULL,
  title TEXT NOT NULL,
  duration_seconds INTEGER NOT NULL,
  thumbnail_url TEXT,
  position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS routines (
  id TEXT PRIMARY KEY,
  playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
  videos_per_day INTEGER NOT NULL,
  target_completion_date TEXT,
  start_date TEXT NOT NULL,
  is_active INTEGER NOT NULL,
  tips TEXT NOT NULL,
  schedule_source TEXT,
  created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
  id TEXT PRIMARY KEY,
  routine_id TEXT NOT NULL REFERENCES routines(id) ON DELETE CASCADE,
  video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  scheduled_date TEXT NOT NULL,
  is_completed INTEGER NOT NULL DEFAULT 0,
  completed_at TEXT
);
CREATE INDEX IF NOT EXISTS tasks_by_date ON tasks(scheduled_date);
CREATE INDEX IF NOT EXISTS tasks_by_routine ON tasks(routine_id);
`

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: fmt.Errorf("create db dir: %w", err)}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}
	// A single connection keeps writes serialized and the pragmas in effect.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Entity: "store", Err: fmt.Errorf("create schema: %w", err)}
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRoutine(ctx context.Context, plan *RoutinePlan) (err error) {
	if err := validatePlan(plan); err != nil {
		return err
	}
	assignIDs(plan)

	tips, err := json.Marshal(plan.Routine.Tips)
	if err != nil {
		return &StorageError{Op: "create", Entity: "routine", ID: plan.Routine.ID, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "create", Entity: "routine", ID: plan.Routine.ID, Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	wrap := func(entity, id string, err error) error {
		return &StorageError{Op: "create", Entity: entity, ID: id, Err: err}
	}

	p := plan.Playlist
	if _, err := tx.ExecContext(ctx, `
INSERT INTO playlists (id, youtube_id, title, url, total_videos, total_duration_seconds, thumbnail_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.YouTubeID, p.Title, p.URL, p.TotalVideos, p.TotalDurationSeconds, p.ThumbnailURL, formatTime(p.CreatedAt)); err != nil {
		return wrap("playlist", p.ID, err)
	}

	for _, v := range plan.Videos {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO videos (id, playlist_id, youtube_id, title, duration_seconds, thumbnail_url, position)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.PlaylistID, v.YouTubeID, v.Title, v.DurationSeconds, v.ThumbnailURL, v.Position); err != nil {
			return wrap("video", v.ID, err)
		}
	}

	r := plan.Routine
	if _, err := tx.ExecContext(ctx, `
INSERT INTO routines (id, playlist_id, videos_per_day, target_completion_date, start_date, is_active, tips, schedule_source, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PlaylistID, r.VideosPerDay, nullString(r.TargetCompletionDate), r.StartDate, r.IsActive, string(tips), r.ScheduleSource, formatTime(r.CreatedAt)); err != nil {
		return wrap("routine", r.ID, err)
	}

	for _, t := range plan.Tasks {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tasks (id, routine_id, video_id, position, scheduled_date, is_completed, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.RoutineID, t.VideoID, t.Position, t.ScheduledDate, t.IsCompleted, nullTime(t.CompletedAt)); err != nil {
			return wrap("task", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("routine", r.ID, err)
	}
	return nil
}

const routineColumns = `id, playlist_id, videos_per_day, target_completion_date, start_date, is_active, tips, schedule_source, created_at`

func scanRoutine(row interface{ Scan(...any) error }) (*Routine, error) {
	var (
		r         Routine
		target    sql.NullString
		source    sql.NullString
		tips      string
		createdAt string
	)
	if err := row.Scan(&r.ID, &r.PlaylistID, &r.VideosPerDay, &target, &r.StartDate, &r.IsActive, &tips, &source, &createdAt); err != nil {
		return nil, err
	}
	r.TargetCompletionDate = target.String
	r.ScheduleSource = source.String
	if err := json.Unmarshal([]byte(tips), &r.Tips); err != nil {
		return nil, ErrStorageCorrupt
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

const taskColumns = `t.id, t.routine_id, t.video_id, t.position, t.scheduled_date, t.is_completed, t.completed_at`

func scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	var (
		t           Task
		completedAt sql.NullString
	)
	if err := row.Scan(&t.ID, &t.RoutineID, &t.VideoID, &t.Position, &t.ScheduledDate, &t.IsCompleted, &completedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		at := parseTime(completedAt.String)
		t.CompletedAt = &at
	}
	return &t, nil
}

func (s *SQLiteStore) GetRoutine(ctx context.Context, id string) (*RoutinePlan, error) {
	r, err := scanRoutine(s.db.QueryRowContext(ctx, `SELECT `+routineColumns+` FROM routines WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return nil, &StorageError{Op: "read", Entity: "routine", ID: id, Err: err}
	}
	plan := &RoutinePlan{Routine: r}

	var (
		p         Playlist
		thumb     sql.NullString
		createdAt string
	)
	err = s.db.QueryRowContext(ctx, `
SELECT id, youtube_id, title, url, total_videos, total_duration_seconds, thumbnail_url, created_at
FROM playlists WHERE id = ?`, r.PlaylistID).
		Scan(&p.ID, &p.YouTubeID, &p.Title, &p.URL, &p.TotalVideos, &p.TotalDurationSeconds, &thumb, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrStorageCorrupt
		}
		return nil, &StorageError{Op: "read", Entity: "playlist", ID: r.PlaylistID, Err: err}
	}
	p.ThumbnailURL = thumb.String
	p.CreatedAt = parseTime(createdAt)
	plan.Playlist = &p

	rows, err := s.db.QueryContext(ctx, `
SELECT id, playlist_id, youtube_id, title, duration_seconds, thumbnail_url, position
FROM videos WHERE playlist_id = ? ORDER BY position`, p.ID)
	if err != nil {
		return nil, &StorageError{Op: "read", Entity: "video", Err: err}
	}
	for rows.Next() {
		var v Video
		var thumb sql.NullString
		if err := rows.Scan(&v.ID, &v.PlaylistID, &v.YouTubeID, &v.Title, &v.DurationSeconds, &thumb, &v.Position); err != nil {
			rows.Close()
			return nil, &StorageError{Op: "read", Entity: "video", Err: err}
		}
		v.ThumbnailURL = thumb.String
		plan.Videos = append(plan.Videos, &v)
	}
	if err := closeRows(rows); err != nil {
		return nil, &StorageError{Op: "read", Entity: "video", Err: err}
	}

	plan.Tasks, err = s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks t
WHERE t.routine_id = ? ORDER BY t.scheduled_date, t.position`, id)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *SQLiteStore) ListRoutines(ctx context.Context) ([]*Routine, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+routineColumns+` FROM routines ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, &StorageError{Op: "read", Entity: "routine", Err: err}
	}
	var routines []*Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			rows.Close()
			return nil, &StorageError{Op: "read", Entity: "routine", Err: err}
		}
		routines = append(routines, r)
	}
	if err := closeRows(rows); err != nil {
		return nil, &StorageError{Op: "read", Entity: "routine", Err: err}
	}
	return routines, nil
}

func (s *SQLiteStore) DeleteRoutine(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "delete", Entity: "routine", ID: id, Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var playlistID string
	if err := tx.QueryRowContext(ctx, `SELECT playlist_id FROM routines WHERE id = ?`, id).Scan(&playlistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return &StorageError{Op: "delete", Entity: "routine", ID: id, Err: err}
	}

	for _, stmt := range []string{
		`DELETE FROM tasks WHERE routine_id = ?`,
		`DELETE FROM routines WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return &StorageError{Op: "delete", Entity: "routine", ID: id, Err: err}
		}
	}
	for _, stmt := range []string{
		`DELETE FROM videos WHERE playlist_id = ?`,
		`DELETE FROM playlists WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, playlistID); err != nil {
			return &StorageError{Op: "delete", Entity: "playlist", ID: playlistID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "delete", Entity: "routine", ID: id, Err: err}
	}
	return nil
}

func (s *SQLiteStore) SetTaskCompleted(ctx context.Context, taskID string, completed bool, at time.Time) (*Task, error) {
	var completedAt any
	if completed {
		completedAt = formatTime(at)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET is_completed = ?, completed_at = ? WHERE id = ?`, completed, completedAt, taskID)
	if err != nil {
		return nil, &StorageError{Op: "update", Entity: "task", ID: taskID, Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, &StorageError{Op: "update", Entity: "task", ID: taskID, Err: ErrNotFound}
	}

	tasks, err := s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, taskID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, &StorageError{Op: "read", Entity: "task", ID: taskID, Err: ErrNotFound}
	}
	return tasks[0], nil
}

func (s *SQLiteStore) ListTasksForDate(ctx context.Context, date string) ([]*Task, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, &StorageError{Op: "read", Entity: "task", ID: date, Err: ErrInvalidInput}
	}
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks t
JOIN routines r ON r.id = t.routine_id
WHERE t.scheduled_date = ? AND r.is_active = 1
ORDER BY t.routine_id, t.position`, date)
}

func (s *SQLiteStore) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "read", Entity: "task", Err: err}
	}
	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, &StorageError{Op: "read", Entity: "task", Err: err}
		}
		tasks = append(tasks, t)
	}
	if err := closeRows(rows); err != nil {
		return nil, &StorageError{Op: "read", Entity: "task", Err: err}
	}
	return tasks, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// timeLayout keeps every stored timestamp the same width so that text
// ordering in SQL matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
