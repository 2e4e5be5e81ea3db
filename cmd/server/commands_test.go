package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/scoring"
	"github.com/daftuyda/Igris/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestRenderProfile(t *testing.T) {
	var buf bytes.Buffer
	renderProfile(&buf, &service.Profile{
		User:       &internal.User{Name: "Jin", Streak: 3, BestStreak: 7},
		Progress:   scoring.Progress(150),
		LatestDay:  &service.XPSummary{Net: 21},
		TotalTasks: 4,
	})
	out := buf.String()
	assert.Contains(t, out, "Jin")
	assert.Contains(t, out, "3 (best 7)")
	assert.Contains(t, out, "+21")
}

func TestRenderEvaluation(t *testing.T) {
	var buf bytes.Buffer
	renderEvaluation(&buf, &service.EvaluationResult{
		LocalDate:   "2026-03-02",
		Weekday:     internal.Monday,
		DueTasks:    2,
		Completed:   1,
		XPBefore:    90,
		XPAfter:     110,
		LevelBefore: 1,
		LevelAfter:  2,
		Streak:      0,
		Entries: []internal.XPLogEntry{
			{Amount: 20, Reason: "Completed task: Read"},
			{Amount: -5, Reason: "Missed task: Run"},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "2026-03-02")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "level up")
	assert.Contains(t, out, "Missed task: Run")
}

func TestRenderSweepListsFailures(t *testing.T) {
	var buf bytes.Buffer
	renderSweep(&buf, service.SweepReport{
		Users:     3,
		Evaluated: 1,
		Skipped:   1,
		Failed:    map[string]error{"u2": errors.New("boom")},
		Duration:  1500 * time.Microsecond,
	})
	assert.Contains(t, buf.String(), "failed u2: boom")
}
