package repository

import (
	"database/sql"
	"fmt"

	"todoapi/internal/core/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one row in taskColumns order.
func scanTask(row rowScanner) (domain.Task, error) {
	var (
		task        domain.Task
		description sql.NullString
		endDate     sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&description,
		&task.Completed,
		&endDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}

	if description.Valid {
		task.Description = &description.String
	}

	if endDate.Valid {
		deadline := endDate.Time.UTC()
		task.EndDate = &deadline
	}

	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	return task, nil
}

func scanTasks(rows *sql.Rows) ([]domain.Task, error) {
	defer rows.Close()

	tasks := make([]domain.Task, 0)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// requireAffected maps a statement that touched no row to NotFound.
func requireAffected(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.NotFound(id)
	}

	return nil
}
