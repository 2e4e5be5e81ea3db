package storage

import (
	"context"
	"time"

	"github.com/daftuyda/Igris/internal"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *internal.User) error
	GetUser(ctx context.Context, id string) (*internal.User, error)
	ListUsers(ctx context.Context) ([]internal.User, error)
}

type TaskRepository interface {
	GetTask(ctx context.Context, id string) (*internal.Task, error)
	ListTasks(ctx context.Context, userID string) ([]internal.Task, error)
}

// LedgerRepository reads the append-only XP log. Entries are only written through a Tx.
type LedgerRepository interface {
	// QueryLedger returns entries with from <= timestamp < to, oldest first.
	QueryLedger(ctx context.Context, userID string, from, to time.Time) ([]internal.XPLogEntry, error)
}

// Tx is the write side of the store. Everything done through one Tx commits or
// rolls back as a unit.
type Tx interface {
	GetUser(ctx context.Context, id string) (*internal.User, error)
	GetTask(ctx context.Context, id string) (*internal.Task, error)
	ListTasks(ctx context.Context, userID string) ([]internal.Task, error)
	ListDueTasks(ctx context.Context, userID string, weekday internal.Weekday) ([]internal.Task, error)
	SaveUser(ctx context.Context, user *internal.User) error
	SaveTask(ctx context.Context, task *internal.Task) error
	DeleteTask(ctx context.Context, userID, taskID string) error
	AppendLedgerEntry(ctx context.Context, entry *internal.XPLogEntry) error
}

type Store interface {
	UserRepository
	TaskRepository
	LedgerRepository
	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
