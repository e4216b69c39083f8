package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ValidateTitle returns the trimmed title. Length is measured before trimming.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)

	if trimmed == "" {
		return "", Validation("title", "Title cannot be empty or whitespace only")
	}

	if utf8.RuneCountInString(title) > TitleMaxLength {
		return "", Validation("title", fmt.Sprintf("Title cannot exceed %d characters", TitleMaxLength))
	}

	return trimmed, nil
}

// ValidateDescription returns the trimmed description, or nil when nothing
// but whitespace was given.
func ValidateDescription(description *string) (*string, error) {
	if description == nil {
		return nil, nil
	}

	if utf8.RuneCountInString(*description) > DescriptionMaxLength {
		return nil, Validation("description", fmt.Sprintf("Description cannot exceed %d characters", DescriptionMaxLength))
	}

	trimmed := strings.TrimSpace(*description)

	if trimmed == "" {
		return nil, nil
	}

	return &trimmed, nil
}

func ValidateID(id int64) error {
	if id <= 0 {
		return Validation("id", "Todo ID must be a positive integer")
	}

	return nil
}

// ValidatePagination checks skip/limit against maxLimit, which is itself
// capped at MaxPageLimit.
func ValidatePagination(skip, limit, maxLimit int) error {
	if maxLimit <= 0 || maxLimit > MaxPageLimit {
		maxLimit = MaxPageLimit
	}

	if skip < 0 {
		return Validation("skip", "Skip parameter must be a non-negative integer")
	}

	if limit <= 0 {
		return Validation("limit", "Limit parameter must be a positive integer")
	}

	if limit > maxLimit {
		return Validation("limit", fmt.Sprintf("Limit parameter cannot exceed %d", maxLimit))
	}

	return nil
}

func ValidateUpdatePayload(patch TaskPatch) error {
	if patch.FieldCount() == 0 {
		return Validation("", "At least one field must be provided for update")
	}

	return nil
}

func ValidateDateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return Validation("end_date_from", "end_date_from must be before or equal to end_date_to")
	}

	return nil
}

// ValidateDraft normalizes a new task: trimmed title and description, UTC deadline.
func ValidateDraft(draft TaskDraft) (TaskDraft, error) {
	title, err := ValidateTitle(draft.Title)
	if err != nil {
		return TaskDraft{}, err
	}

	description, err := ValidateDescription(draft.Description)
	if err != nil {
		return TaskDraft{}, err
	}

	return TaskDraft{
		Title:       title,
		Description: description,
		Completed:   draft.Completed,
		EndDate:     normalizeTimePtr(draft.EndDate),
	}, nil
}

// ValidatePatch rejects empty patches and nulls on non-nullable fields, and
// normalizes every supplied value.
func ValidatePatch(patch TaskPatch) (TaskPatch, error) {
	if err := ValidateUpdatePayload(patch); err != nil {
		return TaskPatch{}, err
	}

	normalized := TaskPatch{Completed: patch.Completed}

	if patch.Title.Set {
		if patch.Title.Value == nil {
			return TaskPatch{}, Validation("title", "Title cannot be null")
		}

		title, err := ValidateTitle(*patch.Title.Value)
		if err != nil {
			return TaskPatch{}, err
		}

		normalized.Title = Some(title)
	}

	if patch.Description.Set {
		description, err := ValidateDescription(patch.Description.Value)
		if err != nil {
			return TaskPatch{}, err
		}

		normalized.Description = Optional[string]{Set: true, Value: description}
	}

	if patch.Completed.Set && patch.Completed.Value == nil {
		return TaskPatch{}, Validation("completed", "Completed cannot be null")
	}

	if patch.EndDate.Set {
		normalized.EndDate = Optional[time.Time]{Set: true, Value: normalizeTimePtr(patch.EndDate.Value)}
	}

	return normalized, nil
}

// ValidateSearch checks pagination and the deadline range, and moves the
// bounds to UTC.
func ValidateSearch(filter SearchFilter, maxLimit int) (SearchFilter, error) {
	if err := ValidatePagination(filter.Skip, filter.Limit, maxLimit); err != nil {
		return SearchFilter{}, err
	}

	if err := ValidateDateRange(filter.EndDateFrom, filter.EndDateTo); err != nil {
		return SearchFilter{}, err
	}

	filter.EndDateFrom = normalizeTimePtr(filter.EndDateFrom)
	filter.EndDateTo = normalizeTimePtr(filter.EndDateTo)

	return filter, nil
}
