package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daftuyda/Igris/internal"

	_ "modernc.org/sqlite"
)

// Fixed width so that timestamps sort lexicographically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchemaVersion = 1

type SQLiteStorage struct {
	db     *sql.DB
	logger internal.Logger
}

// NewSQLiteStorage opens (or creates) the database at path and runs migrations.
// ":memory:" gives a private in-memory database.
func NewSQLiteStorage(path string, logger internal.Logger) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: transactions are serialized and :memory: stays a single database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStorage{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		logger.Errorf("storage: sqlite migration failed: %v", err)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= sqliteSchemaVersion {
		return nil
	}
	for _, stmt := range sqliteSchemaV1 {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion))
	return err
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const sqliteUserColumns = `id, name, timezone, xp, level, streak, best_streak, last_evaluated_date, created_at`

func scanSQLiteUser(row rowScanner) (*internal.User, error) {
	var u internal.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Timezone, &u.XP, &u.Level, &u.Streak, &u.BestStreak, &u.LastEvaluatedDate, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseSQLiteTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

const sqliteTaskColumns = `id, user_id, name, type, days, difficulty, goal, count, done, one_time, created_at`

func scanSQLiteTask(row rowScanner) (*internal.Task, error) {
	var t internal.Task
	var days int
	var createdAt string
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Type, &days, &t.Difficulty, &t.Goal, &t.Count, &t.Done, &t.OneTime, &createdAt); err != nil {
		return nil, err
	}
	ts, err := parseSQLiteTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.Days = internal.WeekdaySet(days)
	t.CreatedAt = ts
	return &t, nil
}

func sqliteGetUser(ctx context.Context, q sqlQuerier, id string) (*internal.User, error) {
	u, err := scanSQLiteUser(q.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("storage: user %s: %w", id, internal.ErrNotFound)
		}
		return nil, fmt.Errorf("user get: %w", err)
	}
	return u, nil
}

func sqliteGetTask(ctx context.Context, q sqlQuerier, id string) (*internal.Task, error) {
	t, err := scanSQLiteTask(q.QueryRowContext(ctx, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("storage: task %s: %w", id, internal.ErrNotFound)
		}
		return nil, fmt.Errorf("task get: %w", err)
	}
	return t, nil
}

func sqliteListTasks(ctx context.Context, q sqlQuerier, query string, args ...interface{}) ([]internal.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	defer rows.Close()

	tasks := make([]internal.Task, 0)
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("task scan: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	return tasks, nil
}

// --- UserRepository ---
func (s *SQLiteStorage) CreateUser(ctx context.Context, u *internal.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+sqliteUserColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Timezone, u.XP, u.Level, u.Streak, u.BestStreak, u.LastEvaluatedDate, formatSQLiteTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*internal.User, error) {
	return sqliteGetUser(ctx, s.db, id)
}

func (s *SQLiteStorage) ListUsers(ctx context.Context) ([]internal.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteUserColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	users := make([]internal.User, 0)
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user scan: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// --- TaskRepository ---
func (s *SQLiteStorage) GetTask(ctx context.Context, id string) (*internal.Task, error) {
	return sqliteGetTask(ctx, s.db, id)
}

func (s *SQLiteStorage) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	return sqliteListTasks(ctx, s.db, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at, id`, userID)
}

// --- LedgerRepository ---
func (s *SQLiteStorage) QueryLedger(ctx context.Context, userID string, from, to time.Time) ([]internal.XPLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, reason, timestamp
		FROM xp_log
		WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp, seq
	`, userID, formatSQLiteTime(from), formatSQLiteTime(to))
	if err != nil {
		return nil, fmt.Errorf("xp log query: %w", err)
	}
	defer rows.Close()

	entries := make([]internal.XPLogEntry, 0)
	for rows.Next() {
		var e internal.XPLogEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &ts); err != nil {
			return nil, fmt.Errorf("xp log scan: %w", err)
		}
		if e.Timestamp, err = parseSQLiteTime(ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Transactions ---
func (s *SQLiteStorage) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) GetUser(ctx context.Context, id string) (*internal.User, error) {
	return sqliteGetUser(ctx, t.tx, id)
}

func (t *sqliteTx) GetTask(ctx context.Context, id string) (*internal.Task, error) {
	return sqliteGetTask(ctx, t.tx, id)
}

func (t *sqliteTx) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	return sqliteListTasks(ctx, t.tx, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at, id`, userID)
}

func (t *sqliteTx) ListDueTasks(ctx context.Context, userID string, weekday internal.Weekday) ([]internal.Task, error) {
	mask := int(internal.NewWeekdaySet(weekday))
	return sqliteListTasks(ctx, t.tx, `
		SELECT `+sqliteTaskColumns+` FROM tasks
		WHERE user_id = ? AND (days & ?) != 0
		ORDER BY created_at, id
	`, userID, mask)
}

func (t *sqliteTx) SaveUser(ctx context.Context, u *internal.User) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE users
		SET name = ?, timezone = ?, xp = ?, level = ?, streak = ?, best_streak = ?, last_evaluated_date = ?
		WHERE id = ?
	`, u.Name, u.Timezone, u.XP, u.Level, u.Streak, u.BestStreak, u.LastEvaluatedDate, u.ID)
	if err != nil {
		return fmt.Errorf("user update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage: user %s: %w", u.ID, internal.ErrNotFound)
	}
	return nil
}

func (t *sqliteTx) SaveTask(ctx context.Context, task *internal.Task) error {
	existing, err := sqliteGetTask(ctx, t.tx, task.ID)
	switch {
	case errors.Is(err, internal.ErrNotFound):
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO tasks (`+sqliteTaskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, task.ID, task.UserID, task.Name, string(task.Type), int(task.Days), task.Difficulty, task.Goal,
			task.Count, task.Done, task.OneTime, formatSQLiteTime(task.CreatedAt))
		if err != nil {
			return fmt.Errorf("task insert: %w", err)
		}
		return nil
	case err != nil:
		return err
	case existing.UserID != task.UserID:
		return fmt.Errorf("storage: task %s belongs to another user: %w", task.ID, internal.ErrForbidden)
	}

	_, err = t.tx.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, type = ?, days = ?, difficulty = ?, goal = ?, count = ?, done = ?, one_time = ?
		WHERE id = ?
	`, task.Name, string(task.Type), int(task.Days), task.Difficulty, task.Goal, task.Count, task.Done, task.OneTime, task.ID)
	if err != nil {
		return fmt.Errorf("task update: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteTask(ctx context.Context, userID, taskID string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	if err != nil {
		return fmt.Errorf("task delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage: task %s: %w", taskID, internal.ErrNotFound)
	}
	return nil
}

func (t *sqliteTx) AppendLedgerEntry(ctx context.Context, e *internal.XPLogEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO xp_log (id, user_id, amount, reason, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Amount, e.Reason, formatSQLiteTime(e.Timestamp))
	if err != nil {
		return fmt.Errorf("xp log insert: %w", err)
	}
	return nil
}

// --- Compile-time assertions ---
var _ Store = (*SQLiteStorage)(nil)
var _ Tx = (*sqliteTx)(nil)
