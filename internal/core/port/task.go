package port

import (
	"context"
	"time"

	"todoapi/internal/core/domain"
)

type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	GetByID(ctx context.Context, id int64) (domain.Task, error)
	Find(ctx context.Context, filter domain.SearchFilter) ([]domain.Task, error)
	Update(ctx context.Context, id int64, patch domain.TaskPatch, now time.Time) (domain.Task, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (domain.TaskStats, error)
	Ping(ctx context.Context) error
}

type TaskService interface {
	Create(ctx context.Context, draft domain.TaskDraft) (domain.Task, error)
	Get(ctx context.Context, id int64) (domain.Task, error)
	List(ctx context.Context, skip, limit int) ([]domain.Task, error)
	Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Task, error)
	Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (domain.TaskStats, error)
	Health(ctx context.Context) error
}
