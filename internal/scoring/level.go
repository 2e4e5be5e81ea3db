package scoring

import "math"

// XPRequiredForLevel returns the total XP needed to reach level.
// Level 1 needs 0 XP, level L > 1 needs 50*(L-1)^2.
func XPRequiredForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return 50 * n * n
}

// LevelForXP returns the highest level L >= 1 such that xp >= XPRequiredForLevel(L).
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	// Closed form estimate, then correct for floating point at the boundaries.
	level := int(math.Sqrt(float64(xp)/50)) + 1
	for level > 1 && XPRequiredForLevel(level) > xp {
		level--
	}
	for XPRequiredForLevel(level+1) <= xp {
		level++
	}
	return level
}

type Rank string

const (
	RankE Rank = "E"
	RankD Rank = "D"
	RankC Rank = "C"
	RankB Rank = "B"
	RankA Rank = "A"
	RankS Rank = "S"
)

func RankForLevel(level int) Rank {
	switch {
	case level <= 5:
		return RankE
	case level <= 10:
		return RankD
	case level <= 15:
		return RankC
	case level <= 20:
		return RankB
	case level <= 30:
		return RankA
	default:
		return RankS
	}
}

type LevelProgress struct {
	Level           int     `json:"level"`
	Rank            Rank    `json:"rank"`
	XP              int     `json:"xp"`
	XPIntoLevel     int     `json:"xp_into_level"`
	XPRangeForLevel int     `json:"xp_range_for_level"`
	XPToNext        int     `json:"xp_to_next"`
	ProgressPercent float64 `json:"progress_percent"`
}

// Progress describes how far xp is between its level threshold and the next one.
func Progress(xp int) LevelProgress {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	cur := XPRequiredForLevel(level)
	next := XPRequiredForLevel(level + 1)

	p := LevelProgress{
		Level:           level,
		Rank:            RankForLevel(level),
		XP:              xp,
		XPIntoLevel:     xp - cur,
		XPRangeForLevel: next - cur,
		XPToNext:        next - xp,
	}
	if p.XPRangeForLevel <= 0 {
		p.ProgressPercent = 100
		return p
	}
	pct := float64(p.XPIntoLevel) / float64(p.XPRangeForLevel) * 100
	p.ProgressPercent = math.Max(0, math.Min(100, pct))
	return p
}
