package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"todoapi/internal/adapter/database"
	"todoapi/internal/core/domain"
	"todoapi/internal/core/port"
	tel "todoapi/internal/core/telemetry"
)

const entity = "task"

type TaskRepository struct {
	db        *database.DB
	telemetry port.Telemetry
}

func NewTaskRepository(db *database.DB, telemetry port.Telemetry) port.TaskRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{
		db:        db,
		telemetry: telemetry,
	}
}

func (tr *TaskRepository) attrs(operation string, extra map[string]interface{}) map[string]interface{} {
	attrs := map[string]interface{}{
		"db.system":    tr.db.Dialect.String(),
		"db.table":     todosTable,
		"db.operation": operation,
	}

	for key, value := range extra {
		attrs[key] = value
	}

	return attrs
}

func (tr *TaskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	ctx, op := tel.StartOperation(ctx, tr.telemetry, "Create", entity, tr.attrs("INSERT", map[string]interface{}{
		"task.title": task.Title,
	}))

	var saved domain.Task

	err := tr.db.WithTx(ctx, func(tx *sql.Tx) error {
		query, args, err := tr.db.QueryBuilder.Insert(todosTable).
			Columns("title", "description", "completed", "end_date", "created_at", "updated_at").
			Values(task.Title, task.Description, task.Completed, task.EndDate, task.CreatedAt, task.UpdatedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return err
		}

		tr.telemetry.RecordRepositoryQuery(ctx, "Create", entity, query, args)

		var id int64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return err
		}

		saved, err = tr.getByID(ctx, tx, id)

		return err
	})

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	op.Span().SetAttributes(map[string]interface{}{"task.id": saved.ID})

	tr.telemetry.RecordBusinessEvent(ctx, "created", entity, strconv.FormatInt(saved.ID, 10), map[string]interface{}{
		"completed":    saved.Completed,
		"has_deadline": saved.EndDate != nil,
	})

	return saved, op.End(nil)
}

func (tr *TaskRepository) GetByID(ctx context.Context, id int64) (domain.Task, error) {
	ctx, op := tel.StartOperation(ctx, tr.telemetry, "GetByID", entity, tr.attrs("SELECT", map[string]interface{}{
		"task.id": id,
	}))

	var task domain.Task

	err := tr.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		task, err = tr.getByID(ctx, tx, id)
		return err
	})

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	return task, op.End(nil)
}

func (tr *TaskRepository) getByID(ctx context.Context, tx *sql.Tx, id int64) (domain.Task, error) {
	query, args, err := tr.db.QueryBuilder.Select(taskColumns...).
		From(todosTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "GetByID", entity, query, args)

	task, err := scanTask(tx.QueryRowContext(ctx, query, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.NotFound(id)
	}

	return task, err
}

func (tr *TaskRepository) Find(ctx context.Context, filter domain.SearchFilter) ([]domain.Task, error) {
	attrs := map[string]interface{}{
		"pagination.skip":  filter.Skip,
		"pagination.limit": filter.Limit,
		"filter.criteria":  filter.HasCriteria(),
	}

	if filter.Completed != nil {
		attrs["filter.completed"] = *filter.Completed
	}

	ctx, op := tel.StartOperation(ctx, tr.telemetry, "Find", entity, tr.attrs("SELECT", attrs))

	var tasks []domain.Task

	err := tr.db.WithTx(ctx, func(tx *sql.Tx) error {
		query, args, err := SearchQuery(tr.db.QueryBuilder, filter).ToSql()
		if err != nil {
			return err
		}

		tr.telemetry.RecordRepositoryQuery(ctx, "Find", entity, query, args)

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}

		tasks, err = scanTasks(rows)

		return err
	})

	if err != nil {
		return nil, op.End(err)
	}

	op.Span().SetAttributes(map[string]interface{}{"db.rows_returned": len(tasks)})

	return tasks, op.End(nil)
}

func (tr *TaskRepository) Update(ctx context.Context, id int64, patch domain.TaskPatch, now time.Time) (domain.Task, error) {
	ctx, op := tel.StartOperation(ctx, tr.telemetry, "Update", entity, tr.attrs("UPDATE", map[string]interface{}{
		"task.id":             id,
		"update.fields_count": patch.FieldCount(),
	}))

	var updated domain.Task

	err := tr.db.WithTx(ctx, func(tx *sql.Tx) error {
		task, err := tr.getByID(ctx, tx, id)
		if err != nil {
			return err
		}

		task.Apply(patch, now)

		query, args, err := tr.db.QueryBuilder.Update(todosTable).
			SetMap(task.ToMap()).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return err
		}

		tr.telemetry.RecordRepositoryQuery(ctx, "Update", entity, query, args)

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		if err := requireAffected(result, id); err != nil {
			return err
		}

		updated, err = tr.getByID(ctx, tx, id)

		return err
	})

	if err != nil {
		return domain.Task{}, op.End(err)
	}

	tr.telemetry.RecordBusinessEvent(ctx, "updated", entity, strconv.FormatInt(id, 10), map[string]interface{}{
		"fields_count": patch.FieldCount(),
		"completed":    updated.Completed,
	})

	return updated, op.End(nil)
}

func (tr *TaskRepository) Delete(ctx context.Context, id int64) error {
	ctx, op := tel.StartOperation(ctx, tr.telemetry, "Delete", entity, tr.attrs("DELETE", map[string]interface{}{
		"task.id": id,
	}))

	err := tr.db.WithTx(ctx, func(tx *sql.Tx) error {
		query, args, err := tr.db.QueryBuilder.Delete(todosTable).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return err
		}

		tr.telemetry.RecordRepositoryQuery(ctx, "Delete", entity, query, args)

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		return requireAffected(result, id)
	})

	if err != nil {
		return op.End(err)
	}

	tr.telemetry.RecordBusinessEvent(ctx, "deleted", entity, strconv.FormatInt(id, 10), nil)

	return op.End(nil)
}

func (tr *TaskRepository) Stats(ctx context.Context) (domain.TaskStats, error) {
	ctx, op := tel.StartOperation(ctx, tr.telemetry, "Stats", entity, tr.attrs("SELECT", nil))

	var total, completed int64

	err := tr.db.WithTx(ctx, func(tx *sql.Tx) error {
		query, args, err := tr.db.QueryBuilder.
			Select("COUNT(*)", "COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0)").
			From(todosTable).
			ToSql()
		if err != nil {
			return err
		}

		tr.telemetry.RecordRepositoryQuery(ctx, "Stats", entity, query, args)

		return tx.QueryRowContext(ctx, query, args...).Scan(&total, &completed)
	})

	if err != nil {
		return domain.TaskStats{}, op.End(err)
	}

	return domain.NewTaskStats(total, completed), op.End(nil)
}

func (tr *TaskRepository) Ping(ctx context.Context) error {
	ctx, op := tel.StartOperation(ctx, tr.telemetry, "Ping", entity, tr.attrs("SELECT", nil))

	return op.End(tr.db.Ping(ctx))
}
