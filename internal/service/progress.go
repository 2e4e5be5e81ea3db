package service

import (
	"context"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/scoring"
)

// GetLevelProgress derives level, rank and progress from the user's XP.
func (s *Service) GetLevelProgress(user *internal.User) scoring.LevelProgress {
	return scoring.Progress(user.XP)
}

// Profile is everything the profile page shows.
type Profile struct {
	User       *internal.User        `json:"user"`
	Progress   scoring.LevelProgress `json:"progress"`
	LatestDay  *XPSummary            `json:"latest_day"`
	TotalTasks int                   `json:"total_tasks"`
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.LatestDaySummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:       user,
		Progress:   s.GetLevelProgress(user),
		LatestDay:  summary,
		TotalTasks: len(tasks),
	}, nil
}
