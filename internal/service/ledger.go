package service

import (
	"context"
	"fmt"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/clock"
)

// XPSummary aggregates ledger entries over a window.
type XPSummary struct {
	From    time.Time             `json:"from"`
	To      time.Time             `json:"to"`
	Gained  int                   `json:"gained"`
	Lost    int                   `json:"lost"` // positive magnitude
	Net     int                   `json:"net"`
	Entries []internal.XPLogEntry `json:"entries"`
}

func summarize(from, to time.Time, entries []internal.XPLogEntry) *XPSummary {
	sum := &XPSummary{From: from, To: to, Entries: entries}
	for _, e := range entries {
		if e.Amount >= 0 {
			sum.Gained += e.Amount
		} else {
			sum.Lost -= e.Amount
		}
	}
	sum.Net = sum.Gained - sum.Lost
	return sum
}

// GetXpLogSummary sums the user's ledger entries with from <= timestamp < to.
func (s *Service) GetXpLogSummary(ctx context.Context, userID string, from, to time.Time) (*XPSummary, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("xp log window %s..%s is empty: %w", from.Format(time.RFC3339), to.Format(time.RFC3339), internal.ErrInvalid)
	}
	entries, err := s.store.QueryLedger(ctx, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query xp log: %w", err)
	}
	return summarize(from.UTC(), to.UTC(), entries), nil
}

// LatestDaySummary covers the user's current local day. The day-close entries
// are written right after local midnight, so this window holds the result of
// the most recent evaluation.
func (s *Service) LatestDaySummary(ctx context.Context, userID string) (*XPSummary, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	from, to := clock.DayBounds(s.clock.Now(), s.zones.Resolve(user.Timezone), 0)
	return s.GetXpLogSummary(ctx, userID, from, to)
}
