package internal

import "time"

// DateLayout is the layout of User.LastEvaluatedDate and other local calendar dates.
const DateLayout = "2006-01-02"

type TaskType string

const (
	TaskTypeCount   TaskType = "count"
	TaskTypeBoolean TaskType = "boolean"
)

type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Timezone          string    `json:"timezone"`
	XP                int       `json:"xp"`
	Level             int       `json:"level"`
	Streak            int       `json:"streak"`
	BestStreak        int       `json:"best_streak"`
	LastEvaluatedDate string    `json:"last_evaluated_date"` // YYYY-MM-DD in the user's zone, "" before the first evaluation
	CreatedAt         time.Time `json:"created_at"`
}

type Task struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Type       TaskType   `json:"type"`
	Days       WeekdaySet `json:"days"`
	Difficulty int        `json:"difficulty"`
	Goal       int        `json:"goal"`
	Count      int        `json:"count"` // progress for count tasks
	Done       bool       `json:"done"`  // progress for boolean tasks
	OneTime    bool       `json:"one_time"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DueOn reports whether the task is scheduled on weekday w.
func (t *Task) DueOn(w Weekday) bool {
	return t.Days.Has(w)
}

// ResetProgress clears both progress fields for the next cycle.
func (t *Task) ResetProgress() {
	t.Count = 0
	t.Done = false
}

type XPLogEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
