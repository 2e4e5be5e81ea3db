package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/clock"
	"github.com/daftuyda/Igris/internal/scoring"
	"github.com/daftuyda/Igris/internal/storage"
	"github.com/google/uuid"
)

type TaskRequest struct {
	Name       string            `json:"name" validate:"required,max=200"`
	Type       internal.TaskType `json:"type" validate:"required,oneof=count boolean"`
	Days       []int             `json:"days" validate:"dive,gte=0,lte=6"`
	Difficulty int               `json:"difficulty" validate:"required,gte=1,lte=100"`
	Goal       int               `json:"goal" validate:"omitempty,gte=1,lte=10000"`
	OneTime    bool              `json:"one_time"`
}

type ProgressRequest struct {
	Amount int `json:"amount" validate:"required"`
}

type TimezoneRequest struct {
	Timezone string `json:"timezone" validate:"required"`
}

type UserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Timezone string `json:"timezone"`
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", internal.ErrInvalid, err)
}

// Validate checks a request struct against its validate tags.
func Validate(req any) error {
	if err := validate.Struct(req); err != nil {
		return invalid(err)
	}
	return nil
}

func ValidateTaskRequest(req *TaskRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return invalid(err)
	}
	return nil
}

// weekdays turns validated day numbers into a set, collapsing duplicates.
func (r *TaskRequest) weekdays() internal.WeekdaySet {
	var set internal.WeekdaySet
	for _, d := range r.Days {
		set = set.With(internal.Weekday(d))
	}
	return set
}

func (r *TaskRequest) goal() int {
	if r.Goal == 0 {
		return 1
	}
	return r.Goal
}

// mutateTask loads an owned task inside the user's lock and transaction, applies
// fn and saves the result.
func (s *Service) mutateTask(ctx context.Context, userID, taskID string, fn func(t *internal.Task) error) (*internal.Task, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var out *internal.Task
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		task, err := ownedTask(ctx, tx, userID, taskID)
		if err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}
		out = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func ownedTask(ctx context.Context, tx storage.Tx, userID, taskID string) (*internal.Task, error) {
	task, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, fmt.Errorf("task %s: %w", taskID, internal.ErrForbidden)
	}
	return task, nil
}

func (s *Service) CreateTask(ctx context.Context, userID string, req *TaskRequest) (*internal.Task, error) {
	if err := ValidateTaskRequest(req); err != nil {
		return nil, err
	}
	task := &internal.Task{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       req.Name,
		Type:       req.Type,
		Days:       req.weekdays(),
		Difficulty: req.Difficulty,
		Goal:       req.goal(),
		OneTime:    req.OneTime,
		CreatedAt:  s.clock.Now().UTC(),
	}

	unlock := s.locks.lock(userID)
	defer unlock()
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		return tx.SaveTask(ctx, task)
	})
	if err != nil {
		s.logger.Errorf("failed to create task for user %s: %v", userID, err)
		return nil, err
	}
	return task, nil
}

// UpdateTask edits a task's definition. Switching type clears the progress
// field the new type does not use.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, req *TaskRequest) (*internal.Task, error) {
	if err := ValidateTaskRequest(req); err != nil {
		return nil, err
	}
	return s.mutateTask(ctx, userID, taskID, func(t *internal.Task) error {
		t.Name = req.Name
		t.Type = req.Type
		t.Days = req.weekdays()
		t.Difficulty = req.Difficulty
		t.Goal = req.goal()
		t.OneTime = req.OneTime
		switch t.Type {
		case internal.TaskTypeCount:
			t.Done = false
		case internal.TaskTypeBoolean:
			t.Count = 0
		}
		return nil
	})
}

// AdjustCount adds amount (possibly negative) to a task's counter, flooring at zero.
func (s *Service) AdjustCount(ctx context.Context, userID, taskID string, amount int) (*internal.Task, error) {
	return s.mutateTask(ctx, userID, taskID, func(t *internal.Task) error {
		t.Count = addCount(t.Count, amount)
		return nil
	})
}

// addCount applies a progress delta, flooring at zero and saturating at MaxInt32
// so the counter fits every backend's column.
func addCount(count, amount int) int {
	switch {
	case amount > 0 && count > math.MaxInt32-amount:
		return math.MaxInt32
	case count+amount < 0:
		return 0
	default:
		return count + amount
	}
}

func (s *Service) ToggleTask(ctx context.Context, userID, taskID string) (*internal.Task, error) {
	return s.mutateTask(ctx, userID, taskID, func(t *internal.Task) error {
		t.Done = !t.Done
		return nil
	})
}

func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.store.WithTx(ctx, func(tx storage.Tx) error {
		if _, err := ownedTask(ctx, tx, userID, taskID); err != nil {
			return err
		}
		return tx.DeleteTask(ctx, userID, taskID)
	})
}

func (s *Service) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	return s.store.ListTasks(ctx, userID)
}

// TaskView is a task as shown on the today list.
type TaskView struct {
	internal.Task
	XPReward int  `json:"xp_reward"`
	Complete bool `json:"complete"`
}

type TodayView struct {
	LocalDate string           `json:"local_date"`
	Weekday   internal.Weekday `json:"weekday"`
	Tasks     []TaskView       `json:"tasks"`
	NextReset time.Time        `json:"next_reset"`
	ResetIn   string           `json:"reset_in"`
}

// TodayTasks lists the tasks due on the user's current local weekday.
func (s *Service) TodayTasks(ctx context.Context, userID string) (*TodayView, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	loc := s.zones.Resolve(user.Timezone)
	weekday := clock.LocalWeekday(now, loc)
	next := clock.NextMidnight(now, loc)

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if !t.DueOn(weekday) {
			continue
		}
		views = append(views, TaskView{Task: *t, XPReward: s.policy.XPReward(t), Complete: scoring.IsComplete(t)})
	}
	return &TodayView{
		LocalDate: clock.LocalDate(now, loc),
		Weekday:   weekday,
		Tasks:     views,
		NextReset: next,
		ResetIn:   next.Sub(now).Truncate(time.Minute).String(),
	}, nil
}

func (s *Service) CreateUser(ctx context.Context, req *UserRequest) (*internal.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	zone := strings.TrimSpace(req.Timezone)
	if zone == "" {
		zone = "UTC"
	}
	if !s.zones.Valid(zone) {
		return nil, invalid(fmt.Errorf("unknown timezone %q", zone))
	}
	user := &internal.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Timezone:  zone,
		Level:     scoring.LevelForXP(0),
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.logger.Errorf("failed to create user: %v", err)
		return nil, err
	}
	s.logger.Infof("created user %s (%s)", user.ID, user.Timezone)
	return user, nil
}

// SetTimezone changes the zone the user's days are counted in. The last
// evaluated date is kept, so a day is never closed twice after a zone change.
func (s *Service) SetTimezone(ctx context.Context, userID string, req *TimezoneRequest) (*internal.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	zone := strings.TrimSpace(req.Timezone)
	if !s.zones.Valid(zone) {
		return nil, invalid(fmt.Errorf("unknown timezone %q", zone))
	}

	unlock := s.locks.lock(userID)
	defer unlock()
	var out *internal.User
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		user.Timezone = zone
		out = user
		return tx.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
