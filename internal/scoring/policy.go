package scoring

import (
	"errors"
	"fmt"

	"github.com/daftuyda/Igris/internal"
)

const (
	DefaultBooleanRewardPerDifficulty = 10
	DefaultPenaltyPerDifficulty       = 5
	DefaultAllCompleteBonus           = 20

	MaxPolicyValue = 10000
	MaxDifficulty  = 100
	MaxGoal        = 10000

	// MaxXP keeps the level curve well inside int range.
	MaxXP = 1_000_000_000_000
)

const (
	ReasonCompletedPrefix  = "Task Completed: "
	ReasonIncompletePrefix = "Incomplete Task: "
	ReasonAllCompleteBonus = "Daily Bonus for Completing All Tasks"
)

// Policy holds the XP rules applied when a day is closed.
type Policy struct {
	BooleanRewardPerDifficulty int `yaml:"boolean_reward_per_difficulty" json:"boolean_reward_per_difficulty"`
	PenaltyPerDifficulty       int `yaml:"penalty_per_difficulty" json:"penalty_per_difficulty"`
	AllCompleteBonus           int `yaml:"all_complete_bonus" json:"all_complete_bonus"`
}

func DefaultPolicy() Policy {
	return Policy{
		BooleanRewardPerDifficulty: DefaultBooleanRewardPerDifficulty,
		PenaltyPerDifficulty:       DefaultPenaltyPerDifficulty,
		AllCompleteBonus:           DefaultAllCompleteBonus,
	}
}

// Validate accepts 0 for any rule, which disables it.
func (p Policy) Validate() error {
	if p.BooleanRewardPerDifficulty < 0 || p.PenaltyPerDifficulty < 0 || p.AllCompleteBonus < 0 {
		return errors.New("scoring policy values must not be negative")
	}
	if p.BooleanRewardPerDifficulty > MaxPolicyValue || p.PenaltyPerDifficulty > MaxPolicyValue || p.AllCompleteBonus > MaxPolicyValue {
		return fmt.Errorf("scoring policy values must not exceed %d", MaxPolicyValue)
	}
	return nil
}

// Reward is the XP granted for completing t. It is also the value shown to users
// next to a task, so there is a single formula.
func (p Policy) Reward(t *internal.Task) int {
	switch t.Type {
	case internal.TaskTypeCount:
		return difficulty(t) * min(t.Goal, MaxGoal)
	case internal.TaskTypeBoolean:
		return difficulty(t) * p.BooleanRewardPerDifficulty
	default:
		return 0
	}
}

// XPReward is the display value for a task.
func (p Policy) XPReward(t *internal.Task) int {
	return p.Reward(t)
}

// Penalty is the XP removed when a due task is left incomplete.
func (p Policy) Penalty(t *internal.Task) int {
	return difficulty(t) * p.PenaltyPerDifficulty
}

// difficulty clamps rows written before the request bounds existed.
func difficulty(t *internal.Task) int {
	return min(t.Difficulty, MaxDifficulty)
}

// AddXP adds a reward to xp, saturating at MaxXP.
func AddXP(xp, reward int) int {
	if reward > 0 && xp > MaxXP-reward {
		return MaxXP
	}
	return xp + reward
}

// ApplyPenalty subtracts penalty from xp, flooring at zero.
func ApplyPenalty(xp, penalty int) int {
	if xp-penalty < 0 {
		return 0
	}
	return xp - penalty
}

// Outcome is the scored result of one due task.
type Outcome struct {
	Task      internal.Task
	Completed bool
	Amount    int // signed ledger amount
	Reason    string
}

// Score judges a due task and builds its ledger line.
func (p Policy) Score(t *internal.Task) Outcome {
	if IsComplete(t) {
		return Outcome{Task: *t, Completed: true, Amount: p.Reward(t), Reason: ReasonCompletedPrefix + t.Name}
	}
	return Outcome{Task: *t, Completed: false, Amount: -p.Penalty(t), Reason: ReasonIncompletePrefix + t.Name}
}
