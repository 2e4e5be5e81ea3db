package service

import (
	"context"
	"fmt"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/clock"
	"github.com/daftuyda/Igris/internal/scoring"
	"github.com/daftuyda/Igris/internal/storage"
	"github.com/google/uuid"
)

type EvaluateOptions struct {
	// MarkDate records the local date as evaluated and skips the run when that
	// date was already evaluated. Sweeps set it; manual triggers do not.
	MarkDate bool
}

// EvaluationResult summarizes one closed day.
type EvaluationResult struct {
	UserID      string                `json:"user_id"`
	LocalDate   string                `json:"local_date"`
	Weekday     internal.Weekday      `json:"weekday"`
	DueTasks    int                   `json:"due_tasks"`
	Completed   int                   `json:"completed"`
	XPBefore    int                   `json:"xp_before"`
	XPAfter     int                   `json:"xp_after"`
	XPDelta     int                   `json:"xp_delta"`
	LevelBefore int                   `json:"level_before"`
	LevelAfter  int                   `json:"level_after"`
	Streak      int                   `json:"streak"`
	AllComplete bool                  `json:"all_complete"`
	Entries     []internal.XPLogEntry `json:"entries"`
	Skipped     bool                  `json:"skipped"`
}

// dateAdvanced reports whether local is a later calendar date than stored.
// YYYY-MM-DD strings order the same as the dates they name.
func dateAdvanced(stored, local string) bool {
	return stored == "" || stored < local
}

// Evaluate closes the user's day as of asOf: scores every due task, writes the
// ledger, updates streak and level and resets or removes the due tasks. All of
// it commits in one transaction.
func (s *Service) Evaluate(ctx context.Context, userID string, asOf time.Time, opts EvaluateOptions) (*EvaluationResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var result *EvaluationResult
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		r, err := s.evaluateTx(ctx, tx, userID, asOf, opts)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		s.logger.Errorf("evaluation failed for user %s: %v", userID, err)
		return nil, fmt.Errorf("evaluate user %s: %w", userID, err)
	}

	if result.Skipped {
		s.logger.Debugf("user %s already evaluated for %s", userID, result.LocalDate)
	} else {
		s.logger.Infof("evaluated user %s for %s (%s): due=%d completed=%d xp %d->%d level %d->%d streak=%d",
			userID, result.LocalDate, result.Weekday, result.DueTasks, result.Completed,
			result.XPBefore, result.XPAfter, result.LevelBefore, result.LevelAfter, result.Streak)
	}
	return result, nil
}

func (s *Service) evaluateTx(ctx context.Context, tx storage.Tx, userID string, asOf time.Time, opts EvaluateOptions) (*EvaluationResult, error) {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := s.zones.Resolve(user.Timezone)
	result := &EvaluationResult{
		UserID:      user.ID,
		LocalDate:   clock.LocalDate(asOf, loc),
		Weekday:     clock.LocalWeekday(asOf, loc),
		XPBefore:    user.XP,
		XPAfter:     user.XP,
		LevelBefore: user.Level,
		LevelAfter:  user.Level,
		Streak:      user.Streak,
		Entries:     make([]internal.XPLogEntry, 0),
	}

	// Re-checked under the transaction so two racing sweeps evaluate once.
	if opts.MarkDate && !dateAdvanced(user.LastEvaluatedDate, result.LocalDate) {
		result.Skipped = true
		return result, nil
	}

	due, err := tx.ListDueTasks(ctx, user.ID, result.Weekday)
	if err != nil {
		return nil, err
	}
	result.DueTasks = len(due)

	ts := asOf.UTC()
	xp := user.XP
	allComplete := true
	for i := range due {
		out := s.policy.Score(&due[i])
		if out.Completed {
			xp = scoring.AddXP(xp, out.Amount)
			result.Completed++
		} else {
			xp = scoring.ApplyPenalty(xp, -out.Amount)
			allComplete = false
		}
		entry := newLedgerEntry(user.ID, out.Amount, out.Reason, ts)
		if err := tx.AppendLedgerEntry(ctx, &entry); err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entry)
	}

	// An empty due set counts as complete.
	if allComplete {
		user.Streak++
		xp = scoring.AddXP(xp, s.policy.AllCompleteBonus)
		entry := newLedgerEntry(user.ID, s.policy.AllCompleteBonus, scoring.ReasonAllCompleteBonus, ts)
		if err := tx.AppendLedgerEntry(ctx, &entry); err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entry)
	} else {
		user.Streak = 0
	}
	if user.Streak > user.BestStreak {
		user.BestStreak = user.Streak
	}

	user.XP = xp
	user.Level = scoring.LevelForXP(xp)
	if opts.MarkDate {
		user.LastEvaluatedDate = result.LocalDate
	}
	if err := tx.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	for i := range due {
		task := &due[i]
		if task.OneTime {
			if err := tx.DeleteTask(ctx, user.ID, task.ID); err != nil {
				return nil, err
			}
			continue
		}
		task.ResetProgress()
		if err := tx.SaveTask(ctx, task); err != nil {
			return nil, err
		}
	}

	result.AllComplete = allComplete
	result.XPAfter = user.XP
	result.XPDelta = user.XP - result.XPBefore
	result.LevelAfter = user.Level
	result.Streak = user.Streak
	return result, nil
}

func newLedgerEntry(userID string, amount int, reason string, ts time.Time) internal.XPLogEntry {
	return internal.XPLogEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		Timestamp: ts,
	}
}

// TriggerEvaluationNow runs the same evaluation immediately, regardless of the
// last evaluated date, and leaves that date untouched.
func (s *Service) TriggerEvaluationNow(ctx context.Context, userID string) (*EvaluationResult, error) {
	s.logger.Warnf("manual evaluation triggered for user %s", userID)
	return s.Evaluate(ctx, userID, s.clock.Now(), EvaluateOptions{MarkDate: false})
}
