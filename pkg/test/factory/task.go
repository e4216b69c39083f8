package factory

import (
	"time"

	fab "github.com/Goldziher/fabricator"

	"todoapi/internal/core/domain"
)

// BaseTime is the creation instant every factory task starts from.
var BaseTime = time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)

// NewTask builds a valid task. Description and EndDate stay nil unless the
// caller supplies them; ID stays zero so the store assigns it.
func NewTask(customData ...map[string]any) domain.Task {
	data := map[string]any{
		"ID":        int64(0),
		"Title":     "Write the quarterly report",
		"Completed": false,
		"CreatedAt": BaseTime,
		"UpdatedAt": BaseTime,
	}

	for _, custom := range customData {
		for key, value := range custom {
			data[key] = value
		}
	}

	task := fab.New(domain.Task{}).Build(data)

	if _, ok := data["Description"]; !ok {
		task.Description = nil
	}

	if _, ok := data["EndDate"]; !ok {
		task.EndDate = nil
	}

	return task
}

func NewTaskDraft(customData ...map[string]any) domain.TaskDraft {
	task := NewTask(customData...)

	return domain.TaskDraft{
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		EndDate:     task.EndDate,
	}
}

func StringPtr(value string) *string {
	return &value
}

func TimePtr(value time.Time) *time.Time {
	return &value
}

func BoolPtr(value bool) *bool {
	return &value
}
