package service

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"todoapi/internal/core/domain"
	"todoapi/internal/core/port"
	tel "todoapi/internal/core/telemetry"
)

const serviceName = "task"

type TaskService struct {
	repo      port.TaskRepository
	telemetry port.Telemetry
	logger    *otelzap.Logger
	maxLimit  int
	now       func() time.Time
}

// NewTaskService builds the service. maxLimit bounds page sizes and is never
// allowed above domain.MaxPageLimit.
func NewTaskService(repo port.TaskRepository, telemetry port.Telemetry, logger *otelzap.Logger, maxLimit int) *TaskService {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}

	if maxLimit <= 0 || maxLimit > domain.MaxPageLimit {
		maxLimit = domain.MaxPageLimit
	}

	return &TaskService{
		repo:      repo,
		telemetry: telemetry,
		logger:    logger,
		maxLimit:  maxLimit,
		now:       func() time.Time { return domain.NormalizeTime(time.Now()) },
	}
}

// SetClock replaces the time source used for created_at/updated_at.
func (ts *TaskService) SetClock(now func() time.Time) {
	ts.now = func() time.Time { return domain.NormalizeTime(now()) }
}

func (ts *TaskService) MaxLimit() int {
	return ts.maxLimit
}

func (ts *TaskService) Create(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Create", nil)
	defer span.End()
	start := time.Now()

	draft, err := domain.ValidateDraft(draft)
	if err != nil {
		return domain.Task{}, ts.finish(ctx, "Create", start, err, "")
	}

	now := ts.now()

	task, err := ts.repo.Create(ctx, domain.Task{
		Title:       draft.Title,
		Description: draft.Description,
		Completed:   draft.Completed,
		EndDate:     draft.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.Task{}, ts.finish(ctx, "Create", start, err, "Failed to create todo item")
	}

	ts.logger.Ctx(ctx).Info("Todo item created", zap.Int64("task_id", task.ID))

	return task, ts.finish(ctx, "Create", start, nil, "")
}

func (ts *TaskService) Get(ctx context.Context, id int64) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Get", map[string]interface{}{"task.id": id})
	defer span.End()
	start := time.Now()

	if err := domain.ValidateID(id); err != nil {
		return domain.Task{}, ts.finish(ctx, "Get", start, err, "")
	}

	task, err := ts.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Task{}, ts.finish(ctx, "Get", start, err, "Failed to retrieve todo item")
	}

	return task, ts.finish(ctx, "Get", start, nil, "")
}

func (ts *TaskService) List(ctx context.Context, skip, limit int) ([]domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "List", map[string]interface{}{
		"pagination.skip":  skip,
		"pagination.limit": limit,
	})
	defer span.End()
	start := time.Now()

	if err := domain.ValidatePagination(skip, limit, ts.maxLimit); err != nil {
		return nil, ts.finish(ctx, "List", start, err, "")
	}

	tasks, err := ts.repo.Find(ctx, domain.SearchFilter{Skip: skip, Limit: limit})
	if err != nil {
		return nil, ts.finish(ctx, "List", start, err, "Failed to retrieve todo items")
	}

	return tasks, ts.finish(ctx, "List", start, nil, "")
}

func (ts *TaskService) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Search", map[string]interface{}{
		"pagination.skip":  filter.Skip,
		"pagination.limit": filter.Limit,
	})
	defer span.End()
	start := time.Now()

	filter, err := domain.ValidateSearch(filter, ts.maxLimit)
	if err != nil {
		return nil, ts.finish(ctx, "Search", start, err, "")
	}

	tasks, err := ts.repo.Find(ctx, filter)
	if err != nil {
		return nil, ts.finish(ctx, "Search", start, err, "Failed to search todo items")
	}

	return tasks, ts.finish(ctx, "Search", start, nil, "")
}

func (ts *TaskService) Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Update", map[string]interface{}{"task.id": id})
	defer span.End()
	start := time.Now()

	if err := domain.ValidateID(id); err != nil {
		return domain.Task{}, ts.finish(ctx, "Update", start, err, "")
	}

	patch, err := domain.ValidatePatch(patch)
	if err != nil {
		return domain.Task{}, ts.finish(ctx, "Update", start, err, "")
	}

	task, err := ts.repo.Update(ctx, id, patch, ts.now())
	if err != nil {
		return domain.Task{}, ts.finish(ctx, "Update", start, err, "Failed to update todo item")
	}

	ts.logger.Ctx(ctx).Info("Todo item updated",
		zap.Int64("task_id", id),
		zap.Int("fields", patch.FieldCount()))

	return task, ts.finish(ctx, "Update", start, nil, "")
}

func (ts *TaskService) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Delete", map[string]interface{}{"task.id": id})
	defer span.End()
	start := time.Now()

	if err := domain.ValidateID(id); err != nil {
		return false, ts.finish(ctx, "Delete", start, err, "")
	}

	if err := ts.repo.Delete(ctx, id); err != nil {
		return false, ts.finish(ctx, "Delete", start, err, "Failed to delete todo item")
	}

	ts.logger.Ctx(ctx).Info("Todo item deleted", zap.Int64("task_id", id))

	return true, ts.finish(ctx, "Delete", start, nil, "")
}

func (ts *TaskService) Stats(ctx context.Context) (domain.TaskStats, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Stats", nil)
	defer span.End()
	start := time.Now()

	stats, err := ts.repo.Stats(ctx)
	if err != nil {
		return domain.TaskStats{}, ts.finish(ctx, "Stats", start, err, "Failed to retrieve todo statistics")
	}

	return stats, ts.finish(ctx, "Stats", start, nil, "")
}

func (ts *TaskService) Health(ctx context.Context) error {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Health", nil)
	defer span.End()
	start := time.Now()

	return ts.finish(ctx, "Health", start, ts.repo.Ping(ctx), "Database connection failed")
}

// finish classifies err, logs it by kind and reports the operation. Validation
// is a caller mistake and stays at debug; NotFound is info; storage failures
// are logged with their cause.
func (ts *TaskService) finish(ctx context.Context, operation string, start time.Time, err error, failureMessage string) error {
	err = domain.Classify(err, failureMessage)

	if dErr, ok := domain.AsError(err); ok {
		log := ts.logger.Ctx(ctx)

		switch dErr.Kind {
		case domain.KindValidation:
			log.Debug("Todo request rejected",
				zap.String("operation", operation),
				zap.String("field", dErr.Field),
				zap.String("reason", dErr.Message))
		case domain.KindNotFound:
			log.Info("Todo item not found",
				zap.String("operation", operation),
				zap.Int64("task_id", dErr.TaskID))
		case domain.KindStorageFailure:
			log.Error(dErr.Message,
				zap.String("operation", operation),
				zap.Error(dErr.Err))
		}
	}

	ts.telemetry.RecordServiceOperation(ctx, serviceName, operation, time.Since(start), err)

	return err
}
