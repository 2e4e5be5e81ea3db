package scoring

import "github.com/daftuyda/Igris/internal"

// IsComplete reports whether a task met its goal for the day.
// Unrecognized task types are never complete.
func IsComplete(t *internal.Task) bool {
	switch t.Type {
	case internal.TaskTypeCount:
		return t.Count >= t.Goal
	case internal.TaskTypeBoolean:
		return t.Done
	default:
		return false
	}
}
