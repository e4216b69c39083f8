package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// SearchFilter narrows a listing. A nil criterion imposes no constraint.
type SearchFilter struct {
	Completed   *bool
	EndDateFrom *time.Time
	EndDateTo   *time.Time
	Skip        int
	Limit       int
}

func (f SearchFilter) HasCriteria() bool {
	return f.Completed != nil || f.EndDateFrom != nil || f.EndDateTo != nil
}

// TaskPatch is a partial update. Fields left unset are untouched; a set field
// with a nil Value clears the column where that is allowed.
type TaskPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Completed   Optional[bool]
	EndDate     Optional[time.Time]
}

// FieldCount is the number of fields the caller supplied.
func (p TaskPatch) FieldCount() int {
	count := 0

	for _, set := range []bool{p.Title.Set, p.Description.Set, p.Completed.Set, p.EndDate.Set} {
		if set {
			count++
		}
	}

	return count
}

// Optional tells an absent JSON member apart from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Value: &value}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var value T

	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	o.Value = &value

	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}

	return json.Marshal(*o.Value)
}
