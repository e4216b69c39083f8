package repository

import (
	sq "github.com/Masterminds/squirrel"

	"todoapi/internal/core/domain"
)

const todosTable = "todos"

var taskColumns = []string{"id", "title", "description", "completed", "end_date", "created_at", "updated_at"}

// SearchQuery builds the listing SELECT: conjunctive criteria, inclusive
// deadline bounds, newest first with id as tie breaker, then offset/limit.
// A NULL end_date never satisfies a bound because NULL comparisons are never true.
func SearchQuery(builder sq.StatementBuilderType, filter domain.SearchFilter) sq.SelectBuilder {
	query := builder.Select(taskColumns...).From(todosTable)

	if filter.Completed != nil {
		query = query.Where(sq.Eq{"completed": *filter.Completed})
	}

	if filter.EndDateFrom != nil {
		query = query.Where(sq.GtOrEq{"end_date": *filter.EndDateFrom})
	}

	if filter.EndDateTo != nil {
		query = query.Where(sq.LtOrEq{"end_date": *filter.EndDateTo})
	}

	query = query.OrderBy("created_at DESC", "id DESC")

	if filter.Skip > 0 {
		query = query.Offset(uint64(filter.Skip))
	}

	return query.Limit(uint64(filter.Limit))
}
