package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/daftuyda/Igris/internal"
)

// FileStorage keeps everything in memory and persists it as JSON files. Transactions
// hold the write lock and stage their writes until commit.
type FileStorage struct {
	users      map[string]*internal.User         // id -> User
	tasks      map[string]*internal.Task         // id -> Task
	ledger     map[string][]*internal.XPLogEntry // userID -> entries in insertion order
	mu         sync.RWMutex
	usersFile  string
	tasksFile  string
	ledgerFile string
	saveChan   chan struct{}
	shutdown   chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	saveDelay  time.Duration
	logger     internal.Logger
}

func NewFileStorage(dataDir string, logger internal.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	s := &FileStorage{
		users:      make(map[string]*internal.User),
		tasks:      make(map[string]*internal.Task),
		ledger:     make(map[string][]*internal.XPLogEntry),
		usersFile:  filepath.Join(dataDir, "users.json"),
		tasksFile:  filepath.Join(dataDir, "tasks.json"),
		ledgerFile: filepath.Join(dataDir, "xp_log.json"),
		saveChan:   make(chan struct{}, 1),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		saveDelay:  500 * time.Millisecond,
		logger:     logger,
	}

	if err := s.load(); err != nil {
		logger.Errorf("storage: failed to load data files: %v", err)
		return nil, err
	}

	go s.saveWorker()

	return s, nil
}

func readJSONFile(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *FileStorage) load() error {
	var users []*internal.User
	if err := readJSONFile(s.usersFile, &users); err != nil {
		return err
	}
	var tasks []*internal.Task
	if err := readJSONFile(s.tasksFile, &tasks); err != nil {
		return err
	}
	var entries []*internal.XPLogEntry
	if err := readJSONFile(s.ledgerFile, &entries); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.ID] = u
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	// The file is written in insertion order; keep it.
	for _, e := range entries {
		s.ledger[e.UserID] = append(s.ledger[e.UserID], e)
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) save() error {
	s.mu.RLock()
	users := make([]*internal.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		users = append(users, &cp)
	}
	tasks := make([]*internal.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		cp := *t
		tasks = append(tasks, &cp)
	}
	userIDs := make([]string, 0, len(s.ledger))
	for id := range s.ledger {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	entries := make([]*internal.XPLogEntry, 0)
	for _, id := range userIDs {
		entries = append(entries, s.ledger[id]...)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	if err := atomicWriteFileJSON(s.usersFile, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	if err := atomicWriteFileJSON(s.tasksFile, tasks); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	if err := atomicWriteFileJSON(s.ledgerFile, entries); err != nil {
		return fmt.Errorf("save xp log: %w", err)
	}
	return nil
}

func (s *FileStorage) markDirty() {
	select {
	case s.saveChan <- struct{}{}:
	default:
	}
}

func (s *FileStorage) saveWorker() {
	defer close(s.done)
	timer := time.NewTimer(s.saveDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-s.saveChan:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := s.save(); err != nil {
				s.logger.Errorf("storage: error saving data files: %v", err)
			}
		case <-s.shutdown:
			return
		}
	}
}

// Close stops the save worker and writes pending data synchronously.
func (s *FileStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdown)
		<-s.done
		err = s.save()
	})
	return err
}

// --- UserRepository ---
func (s *FileStorage) CreateUser(ctx context.Context, user *internal.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("storage: user %s already exists", user.ID)
	}
	cp := *user
	s.users[user.ID] = &cp
	s.markDirty()
	return nil
}

func (s *FileStorage) GetUser(ctx context.Context, id string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("storage: user %s: %w", id, internal.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *FileStorage) ListUsers(ctx context.Context) ([]internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]internal.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// --- TaskRepository ---
func (s *FileStorage) GetTask(ctx context.Context, id string) (*internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("storage: task %s: %w", id, internal.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *FileStorage) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTasksLocked(userID, nil), nil
}

func (s *FileStorage) listTasksLocked(userID string, keep func(*internal.Task) bool) []internal.Task {
	tasks := make([]internal.Task, 0)
	for _, t := range s.tasks {
		if t.UserID != userID || (keep != nil && !keep(t)) {
			continue
		}
		tasks = append(tasks, *t)
	}
	sortTasks(tasks)
	return tasks
}

func sortTasks(tasks []internal.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// --- LedgerRepository ---
func (s *FileStorage) QueryLedger(ctx context.Context, userID string, from, to time.Time) ([]internal.XPLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]internal.XPLogEntry, 0)
	for _, e := range s.ledger[userID] {
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		entries = append(entries, *e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// --- Transactions ---
func (s *FileStorage) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &fileTx{
		s:       s,
		users:   make(map[string]internal.User),
		tasks:   make(map[string]internal.Task),
		deleted: make(map[string]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.apply()
	s.markDirty()
	return nil
}

// fileTx stages writes over the locked store.
type fileTx struct {
	s       *FileStorage
	users   map[string]internal.User
	tasks   map[string]internal.Task
	deleted map[string]bool
	entries []internal.XPLogEntry
}

func (tx *fileTx) GetUser(ctx context.Context, id string) (*internal.User, error) {
	if u, ok := tx.users[id]; ok {
		return &u, nil
	}
	u, ok := tx.s.users[id]
	if !ok {
		return nil, fmt.Errorf("storage: user %s: %w", id, internal.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (tx *fileTx) GetTask(ctx context.Context, id string) (*internal.Task, error) {
	if tx.deleted[id] {
		return nil, fmt.Errorf("storage: task %s: %w", id, internal.ErrNotFound)
	}
	if t, ok := tx.tasks[id]; ok {
		return &t, nil
	}
	t, ok := tx.s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("storage: task %s: %w", id, internal.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (tx *fileTx) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	return tx.list(userID, nil), nil
}

func (tx *fileTx) ListDueTasks(ctx context.Context, userID string, weekday internal.Weekday) ([]internal.Task, error) {
	return tx.list(userID, func(t *internal.Task) bool { return t.DueOn(weekday) }), nil
}

func (tx *fileTx) list(userID string, keep func(*internal.Task) bool) []internal.Task {
	tasks := make([]internal.Task, 0)
	for id, t := range tx.s.tasks {
		if tx.deleted[id] {
			continue
		}
		if _, staged := tx.tasks[id]; staged {
			continue
		}
		if t.UserID == userID && (keep == nil || keep(t)) {
			tasks = append(tasks, *t)
		}
	}
	for _, t := range tx.tasks {
		t := t
		if t.UserID == userID && (keep == nil || keep(&t)) {
			tasks = append(tasks, t)
		}
	}
	sortTasks(tasks)
	return tasks
}

func (tx *fileTx) SaveUser(ctx context.Context, user *internal.User) error {
	if _, err := tx.GetUser(ctx, user.ID); err != nil {
		return err
	}
	tx.users[user.ID] = *user
	return nil
}

func (tx *fileTx) SaveTask(ctx context.Context, task *internal.Task) error {
	if _, err := tx.GetUser(ctx, task.UserID); err != nil {
		return fmt.Errorf("storage: save task %s: %w", task.ID, err)
	}
	if existing, err := tx.GetTask(ctx, task.ID); err == nil && existing.UserID != task.UserID {
		return fmt.Errorf("storage: task %s belongs to another user: %w", task.ID, internal.ErrForbidden)
	}
	delete(tx.deleted, task.ID)
	tx.tasks[task.ID] = *task
	return nil
}

func (tx *fileTx) DeleteTask(ctx context.Context, userID, taskID string) error {
	t, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return fmt.Errorf("storage: task %s: %w", taskID, internal.ErrNotFound)
	}
	delete(tx.tasks, taskID)
	tx.deleted[taskID] = true
	return nil
}

func (tx *fileTx) AppendLedgerEntry(ctx context.Context, entry *internal.XPLogEntry) error {
	if _, err := tx.GetUser(ctx, entry.UserID); err != nil {
		return fmt.Errorf("storage: append xp log: %w", err)
	}
	tx.entries = append(tx.entries, *entry)
	return nil
}

func (tx *fileTx) apply() {
	s := tx.s
	for id, u := range tx.users {
		u := u
		s.users[id] = &u
	}
	for id := range tx.deleted {
		delete(s.tasks, id)
	}
	for id, t := range tx.tasks {
		t := t
		s.tasks[id] = &t
	}
	for _, e := range tx.entries {
		e := e
		s.ledger[e.UserID] = append(s.ledger[e.UserID], &e)
	}
}

// --- Compile-time assertions ---
var _ Store = (*FileStorage)(nil)
var _ Tx = (*fileTx)(nil)
