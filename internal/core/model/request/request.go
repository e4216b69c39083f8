package request

import (
	"time"

	"todoapi/internal/core/domain"
)

type CreateTaskRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description *string           `json:"description" validate:"omitempty,max=1000"`
	Completed   bool              `json:"completed"`
	EndDate     *domain.Timestamp `json:"end_date"`
}

func (r CreateTaskRequest) ToDraft() domain.TaskDraft {
	return domain.TaskDraft{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		EndDate:     r.EndDate.Time(),
	}
}

// UpdateTaskRequest keeps absent members apart from explicit nulls.
type UpdateTaskRequest struct {
	Title       domain.Optional[string]           `json:"title"`
	Description domain.Optional[string]           `json:"description"`
	Completed   domain.Optional[bool]             `json:"completed"`
	EndDate     domain.Optional[domain.Timestamp] `json:"end_date"`
}

func (r UpdateTaskRequest) ToPatch() domain.TaskPatch {
	return domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		EndDate:     domain.Optional[time.Time]{Set: r.EndDate.Set, Value: r.EndDate.Value.Time()},
	}
}

type ListQuery struct {
	Skip  *int `form:"skip"`
	Limit *int `form:"limit"`
}

// SearchQuery holds the raw search parameters. Timestamps stay strings so
// the handler can accept the ISO 8601 variants clients send.
type SearchQuery struct {
	Completed   *bool   `form:"completed"`
	EndDateFrom *string `form:"end_date_from"`
	EndDateTo   *string `form:"end_date_to"`
	Skip        *int    `form:"skip"`
	Limit       *int    `form:"limit"`
}
