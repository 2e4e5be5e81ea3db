package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/scoring"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "UTC")

	cases := map[string]TaskRequest{
		"missing name":     {Type: internal.TaskTypeCount, Difficulty: 1},
		"blank name":       {Name: "   ", Type: internal.TaskTypeCount, Difficulty: 1},
		"unknown type":     {Name: "x", Type: "timer", Difficulty: 1},
		"zero difficulty":  {Name: "x", Type: internal.TaskTypeCount},
		"negative goal":    {Name: "x", Type: internal.TaskTypeCount, Difficulty: 1, Goal: -1},
		"bad weekday":      {Name: "x", Type: internal.TaskTypeCount, Difficulty: 1, Days: []int{7}},
		"goal too large":   {Name: "x", Type: internal.TaskTypeCount, Difficulty: 1, Goal: scoring.MaxGoal + 1},
		"overflowing goal": {Name: "x", Type: internal.TaskTypeCount, Difficulty: 100, Goal: math.MaxInt / 50},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateTask(ctx, u.ID, &req)
			assert.True(t, errors.Is(err, internal.ErrInvalid), "got %v", err)
		})
	}

	_, err := f.svc.CreateTask(ctx, uuid.NewString(), &TaskRequest{Name: "x", Type: internal.TaskTypeCount, Difficulty: 1})
	assert.True(t, errors.Is(err, internal.ErrNotFound))
}

func TestCreateTask_NormalizesDays(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "UTC")
	task := f.task(t, u.ID, TaskRequest{Name: "gym", Type: internal.TaskTypeCount, Days: []int{4, 0, 4, 2}, Difficulty: 2})

	assert.Equal(t, internal.NewWeekdaySet(internal.Monday, internal.Wednesday, internal.Friday), task.Days)
	assert.Equal(t, 1, task.Goal)
	assert.Equal(t, "0,2,4", task.Days.String())

	repeated := f.task(t, u.ID, TaskRequest{Name: "walk", Type: internal.TaskTypeBoolean, Days: []int{0, 0, 1, 1, 2, 2, 3, 3}, Difficulty: 1})
	assert.Equal(t, []internal.Weekday{internal.Monday, internal.Tuesday, internal.Wednesday, internal.Thursday}, repeated.Days.Days())
}

func TestUpdateTask_TypeSwitchClearsOtherProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "UTC")
	task := f.task(t, u.ID, TaskRequest{Name: "read", Type: internal.TaskTypeCount, Days: everyDay(), Difficulty: 1, Goal: 20})
	_, err := f.svc.AdjustCount(ctx, u.ID, task.ID, 7)
	require.NoError(t, err)

	updated, err := f.svc.UpdateTask(ctx, u.ID, task.ID, &TaskRequest{Name: "read a chapter", Type: internal.TaskTypeBoolean, Days: []int{5, 6}, Difficulty: 2})
	require.NoError(t, err)
	assert.Equal(t, "read a chapter", updated.Name)
	assert.Equal(t, 0, updated.Count)
	assert.Equal(t, internal.NewWeekdaySet(internal.Saturday, internal.Sunday), updated.Days)

	_, err = f.svc.ToggleTask(ctx, u.ID, task.ID)
	require.NoError(t, err)
	updated, err = f.svc.UpdateTask(ctx, u.ID, task.ID, &TaskRequest{Name: "read", Type: internal.TaskTypeCount, Days: everyDay(), Difficulty: 1, Goal: 3})
	require.NoError(t, err)
	assert.False(t, updated.Done)
	assert.True(t, task.CreatedAt.Equal(updated.CreatedAt))
}

func TestAdjustCount_FloorsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "UTC")
	task := f.task(t, u.ID, TaskRequest{Name: "water", Type: internal.TaskTypeCount, Days: everyDay(), Difficulty: 1, Goal: 8})

	got, err := f.svc.AdjustCount(ctx, u.ID, task.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Count)

	got, err = f.svc.AdjustCount(ctx, u.ID, task.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Count)

	got, err = f.svc.AdjustCount(ctx, u.ID, task.ID, math.MinInt)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Count)
}

func TestAdjustCount_Saturates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "UTC")
	task := f.task(t, u.ID, TaskRequest{Name: "steps", Type: internal.TaskTypeCount, Days: everyDay(), Difficulty: 1, Goal: scoring.MaxGoal})

	_, err := f.svc.AdjustCount(ctx, u.ID, task.ID, math.MaxInt32-1)
	require.NoError(t, err)
	got, err := f.svc.AdjustCount(ctx, u.ID, task.ID, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, got.Count)

	got, err = f.svc.AdjustCount(ctx, u.ID, task.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32-5, got.Count)
}

func TestTaskOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "UTC")
	intruder := f.user(t, "UTC")
	task := f.task(t, owner.ID, TaskRequest{Name: "secret", Type: internal.TaskTypeBoolean, Days: everyDay(), Difficulty: 1})

	_, err := f.svc.ToggleTask(ctx, intruder.ID, task.ID)
	assert.True(t, errors.Is(err, internal.ErrForbidden))
	_, err = f.svc.AdjustCount(ctx, intruder.ID, task.ID, 1)
	assert.True(t, errors.Is(err, internal.ErrForbidden))
	_, err = f.svc.UpdateTask(ctx, intruder.ID, task.ID, &TaskRequest{Name: "mine", Type: internal.TaskTypeBoolean, Difficulty: 1})
	assert.True(t, errors.Is(err, internal.ErrForbidden))
	err = f.svc.DeleteTask(ctx, intruder.ID, task.ID)
	assert.True(t, errors.Is(err, internal.ErrForbidden))

	err = f.svc.DeleteTask(ctx, owner.ID, task.ID)
	require.NoError(t, err)
	err = f.svc.DeleteTask(ctx, owner.ID, task.ID)
	assert.True(t, errors.Is(err, internal.ErrNotFound))

	tasks, err := f.svc.ListTasks(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTodayTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "America/New_York")
	count := f.task(t, u.ID, TaskRequest{Name: "pages", Type: internal.TaskTypeCount, Days: []int{0}, Difficulty: 2, Goal: 10})
	boolean := f.task(t, u.ID, TaskRequest{Name: "floss", Type: internal.TaskTypeBoolean, Days: []int{0, 1}, Difficulty: 3})
	f.task(t, u.ID, TaskRequest{Name: "tuesday", Type: internal.TaskTypeBoolean, Days: []int{1}, Difficulty: 1})
	_, err := f.svc.ToggleTask(ctx, u.ID, boolean.ID)
	require.NoError(t, err)

	// 15:00 UTC Monday is 10:00 in New York (EST).
	f.clock.Set(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))
	view, err := f.svc.TodayTasks(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02", view.LocalDate)
	assert.Equal(t, internal.Monday, view.Weekday)
	require.Len(t, view.Tasks, 2)
	assert.Equal(t, count.ID, view.Tasks[0].ID)
	assert.Equal(t, 20, view.Tasks[0].XPReward)
	assert.False(t, view.Tasks[0].Complete)
	assert.Equal(t, 30, view.Tasks[1].XPReward)
	assert.True(t, view.Tasks[1].Complete)
	assert.True(t, view.NextReset.Equal(time.Date(2026, 3, 3, 5, 0, 0, 0, time.UTC)))
	assert.Equal(t, "14h0m0s", view.ResetIn)
}

func TestXPRewardMatchesLedgerReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "UTC")
	task := f.task(t, u.ID, TaskRequest{Name: "walk", Type: internal.TaskTypeBoolean, Days: everyDay(), Difficulty: 4})
	_, err := f.svc.ToggleTask(ctx, u.ID, task.ID)
	require.NoError(t, err)

	view, err := f.svc.TodayTasks(ctx, u.ID)
	require.NoError(t, err)
	res, err := f.svc.Evaluate(ctx, u.ID, f.clock.Now(), EvaluateOptions{})
	require.NoError(t, err)
	assert.Equal(t, view.Tasks[0].XPReward, res.Entries[0].Amount)
}

func TestCreateUserAndSetTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, &UserRequest{Name: "Cha Hae-In"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", u.Timezone)
	assert.Equal(t, 1, u.Level)

	_, err = f.svc.CreateUser(ctx, &UserRequest{Name: "x", Timezone: "Not/AZone"})
	assert.True(t, errors.Is(err, internal.ErrInvalid))
	_, err = f.svc.CreateUser(ctx, &UserRequest{})
	assert.True(t, errors.Is(err, internal.ErrInvalid))

	_, err = f.svc.Evaluate(ctx, u.ID, f.clock.Now(), EvaluateOptions{MarkDate: true})
	require.NoError(t, err)

	updated, err := f.svc.SetTimezone(ctx, u.ID, &TimezoneRequest{Timezone: "Asia/Seoul"})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", updated.Timezone)
	assert.Equal(t, "2026-03-02", updated.LastEvaluatedDate)
	assert.Equal(t, "Asia/Seoul", f.getUser(t, u.ID).Timezone)

	_, err = f.svc.SetTimezone(ctx, u.ID, &TimezoneRequest{Timezone: "Mars/Base"})
	assert.True(t, errors.Is(err, internal.ErrInvalid))
	_, err = f.svc.SetTimezone(ctx, u.ID, &TimezoneRequest{})
	assert.True(t, errors.Is(err, internal.ErrInvalid))
}

func TestGetXpLogSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "UTC")
	done := f.task(t, u.ID, TaskRequest{Name: "done", Type: internal.TaskTypeBoolean, Days: everyDay(), Difficulty: 1})
	f.task(t, u.ID, TaskRequest{Name: "missed", Type: internal.TaskTypeBoolean, Days: everyDay(), Difficulty: 2})
	_, err := f.svc.ToggleTask(ctx, u.ID, done.ID)
	require.NoError(t, err)
	f.setXP(t, u.ID, 100, 0)

	_, err = f.svc.Evaluate(ctx, u.ID, f.clock.Now(), EvaluateOptions{MarkDate: true})
	require.NoError(t, err)

	sum, err := f.svc.GetXpLogSummary(ctx, u.ID, monday.Add(-time.Hour), monday.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Gained)
	assert.Equal(t, 10, sum.Lost)
	assert.Equal(t, 0, sum.Net)
	assert.Len(t, sum.Entries, 2)

	empty, err := f.svc.GetXpLogSummary(ctx, u.ID, monday.Add(time.Hour), monday.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Net)
	assert.Empty(t, empty.Entries)

	_, err = f.svc.GetXpLogSummary(ctx, u.ID, monday, monday)
	assert.True(t, errors.Is(err, internal.ErrInvalid))
}

func TestProfileUsesCurrentLocalDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "UTC")
	f.setXP(t, u.ID, 240, 0)

	// Evaluated just after midnight, viewed later the same day.
	f.clock.Set(time.Date(2026, 3, 3, 0, 5, 0, 0, time.UTC))
	sched := NewScheduler(f.svc, SchedulerConfig{Workers: 1}, internal.NewNopLogger())
	_, err := sched.Sweep(ctx, f.clock.Now())
	require.NoError(t, err)
	f.clock.Set(time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC))

	p, err := f.svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 260, p.User.XP)
	assert.Equal(t, 20, p.LatestDay.Gained)
	assert.Equal(t, 20, p.LatestDay.Net)
	assert.Equal(t, 0, p.TotalTasks)
	assert.Equal(t, scoring.Progress(260), p.Progress)
	assert.Equal(t, 3, p.Progress.Level)
	assert.Equal(t, scoring.RankE, p.Progress.Rank)

	assert.Equal(t, p.Progress, f.svc.GetLevelProgress(p.User))
}
