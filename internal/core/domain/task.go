package domain

import (
	"math"
	"time"
)

const (
	TitleMaxLength       = 200
	DescriptionMaxLength = 1000

	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

type Task struct {
	ID          int64
	Title       string
	Description *string
	Completed   bool
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskDraft carries the caller supplied fields of a task that does not exist yet.
type TaskDraft struct {
	Title       string
	Description *string
	Completed   bool
	EndDate     *time.Time
}

// IsOverdue reports whether the deadline passed before now on an open task.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.EndDate == nil || t.Completed {
		return false
	}

	return t.EndDate.Before(now)
}

// Apply copies the supplied patch fields onto the task and refreshes
// UpdatedAt. UpdatedAt always moves forward, even when now does not.
func (t *Task) Apply(patch TaskPatch, now time.Time) {
	if patch.Title.Set && patch.Title.Value != nil {
		t.Title = *patch.Title.Value
	}

	if patch.Description.Set {
		t.Description = patch.Description.Value
	}

	if patch.Completed.Set && patch.Completed.Value != nil {
		t.Completed = *patch.Completed.Value
	}

	if patch.EndDate.Set {
		t.EndDate = patch.EndDate.Value
	}

	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Microsecond)
	}

	t.UpdatedAt = now
}

func (t *Task) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"end_date":    t.EndDate,
		"updated_at":  t.UpdatedAt,
	}
}

type TaskStats struct {
	Total          int64
	Completed      int64
	Pending        int64
	CompletionRate float64
}

// NewTaskStats derives pending and the completion percentage (two decimals,
// 0 for an empty store) from raw counts.
func NewTaskStats(total, completed int64) TaskStats {
	stats := TaskStats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}

	if total > 0 {
		rate := float64(completed) / float64(total) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}

	return stats
}

// NormalizeTime drops the monotonic reading, moves t to UTC and truncates to
// the microsecond precision every supported store keeps.
func NormalizeTime(t time.Time) time.Time {
	return t.Round(0).UTC().Truncate(time.Microsecond)
}

func normalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	normalized := NormalizeTime(*t)

	return &normalized
}
