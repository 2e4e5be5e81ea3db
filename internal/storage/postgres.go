package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(ctx context.Context, dsn string, logger internal.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Errorf("failed to ping postgres: %v", err)
		return nil, err
	}
	p := &PostgresStorage{pool: pool, logger: logger}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresStorage) migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			p.logger.Errorf("postgres migration failed: %v", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pgUserColumns = `id, name, timezone, xp, level, streak, best_streak, last_evaluated_date, created_at`

func scanPgUser(row pgx.Row) (*internal.User, error) {
	var u internal.User
	if err := row.Scan(&u.ID, &u.Name, &u.Timezone, &u.XP, &u.Level, &u.Streak, &u.BestStreak, &u.LastEvaluatedDate, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

const pgTaskColumns = `id, user_id, name, type, days, difficulty, goal, count, done, one_time, created_at`

func scanPgTask(row pgx.Row) (*internal.Task, error) {
	var t internal.Task
	var taskType string
	var days int
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &taskType, &days, &t.Difficulty, &t.Goal, &t.Count, &t.Done, &t.OneTime, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = internal.TaskType(taskType)
	t.Days = internal.WeekdaySet(days)
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func pgGetUser(ctx context.Context, q pgQuerier, id string, forUpdate bool) (*internal.User, error) {
	query := `SELECT ` + pgUserColumns + ` FROM users WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	u, err := scanPgUser(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("storage: user %s: %w", id, internal.ErrNotFound)
		}
		return nil, fmt.Errorf("user get: %w", err)
	}
	return u, nil
}

func pgGetTask(ctx context.Context, q pgQuerier, id string) (*internal.Task, error) {
	t, err := scanPgTask(q.QueryRow(ctx, `SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("storage: task %s: %w", id, internal.ErrNotFound)
		}
		return nil, fmt.Errorf("task get: %w", err)
	}
	return t, nil
}

func pgListTasks(ctx context.Context, q pgQuerier, query string, args ...any) ([]internal.Task, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	defer rows.Close()

	tasks := make([]internal.Task, 0)
	for rows.Next() {
		t, err := scanPgTask(rows)
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
func (p *PostgresStorage) CreateUser(ctx context.Context, u *internal.User) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO users (`+pgUserColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Name, u.Timezone, u.XP, u.Level, u.Streak, u.BestStreak, u.LastEvaluatedDate, u.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert user: %v", err)
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (p *PostgresStorage) GetUser(ctx context.Context, id string) (*internal.User, error) {
	return pgGetUser(ctx, p.pool, id, false)
}

func (p *PostgresStorage) ListUsers(ctx context.Context) ([]internal.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+pgUserColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		p.logger.Errorf("failed to query users: %v", err)
		return nil, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	users := make([]internal.User, 0)
	for rows.Next() {
		u, err := scanPgUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user scan: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// --- TaskRepository ---
func (p *PostgresStorage) GetTask(ctx context.Context, id string) (*internal.Task, error) {
	return pgGetTask(ctx, p.pool, id)
}

func (p *PostgresStorage) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	return pgListTasks(ctx, p.pool, `SELECT `+pgTaskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

// --- LedgerRepository ---
func (p *PostgresStorage) QueryLedger(ctx context.Context, userID string, from, to time.Time) ([]internal.XPLogEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, amount, reason, timestamp
		FROM xp_log
		WHERE user_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp, seq
	`, userID, from.UTC(), to.UTC())
	if err != nil {
		p.logger.Errorf("failed to query xp log: %v", err)
		return nil, fmt.Errorf("xp log query: %w", err)
	}
	defer rows.Close()

	entries := make([]internal.XPLogEntry, 0)
	for rows.Next() {
		var e internal.XPLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("xp log scan: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Transactions ---
func (p *PostgresStorage) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

// GetUser locks the user row until the transaction ends.
func (t *pgTx) GetUser(ctx context.Context, id string) (*internal.User, error) {
	return pgGetUser(ctx, t.tx, id, true)
}

func (t *pgTx) GetTask(ctx context.Context, id string) (*internal.Task, error) {
	return pgGetTask(ctx, t.tx, id)
}

func (t *pgTx) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	return pgListTasks(ctx, t.tx, `SELECT `+pgTaskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

func (t *pgTx) ListDueTasks(ctx context.Context, userID string, weekday internal.Weekday) ([]internal.Task, error) {
	mask := int(internal.NewWeekdaySet(weekday))
	return pgListTasks(ctx, t.tx, `
		SELECT `+pgTaskColumns+` FROM tasks
		WHERE user_id = $1 AND (days & $2) <> 0
		ORDER BY created_at, id
	`, userID, mask)
}

func (t *pgTx) SaveUser(ctx context.Context, u *internal.User) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE users
		SET name = $1, timezone = $2, xp = $3, level = $4, streak = $5, best_streak = $6, last_evaluated_date = $7
		WHERE id = $8
	`, u.Name, u.Timezone, u.XP, u.Level, u.Streak, u.BestStreak, u.LastEvaluatedDate, u.ID)
	if err != nil {
		return fmt.Errorf("user update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: user %s: %w", u.ID, internal.ErrNotFound)
	}
	return nil
}

func (t *pgTx) SaveTask(ctx context.Context, task *internal.Task) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO tasks (`+pgTaskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, type = EXCLUDED.type, days = EXCLUDED.days,
			difficulty = EXCLUDED.difficulty, goal = EXCLUDED.goal, count = EXCLUDED.count,
			done = EXCLUDED.done, one_time = EXCLUDED.one_time
		WHERE tasks.user_id = EXCLUDED.user_id
	`, task.ID, task.UserID, task.Name, string(task.Type), int(task.Days), task.Difficulty, task.Goal,
		task.Count, task.Done, task.OneTime, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("task upsert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: task %s belongs to another user: %w", task.ID, internal.ErrForbidden)
	}
	return nil
}

func (t *pgTx) DeleteTask(ctx context.Context, userID, taskID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return fmt.Errorf("task delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: task %s: %w", taskID, internal.ErrNotFound)
	}
	return nil
}

func (t *pgTx) AppendLedgerEntry(ctx context.Context, e *internal.XPLogEntry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO xp_log (id, user_id, amount, reason, timestamp) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, e.Amount, e.Reason, e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("xp log insert: %w", err)
	}
	return nil
}

// --- Compile-time assertions ---
var _ Store = (*PostgresStorage)(nil)
var _ Tx = (*pgTx)(nil)
var _ pgQuerier = (*pgxpool.Pool)(nil)
