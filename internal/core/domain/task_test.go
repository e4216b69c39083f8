package domain

import (
	"errors"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type TaskTestSuite struct {
	suite.Suite
	now time.Time
}

func (s *TaskTestSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestTaskTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TaskTestSuite))
}

func (s *TaskTestSuite) TestIsOverdue() {
	past := s.now.Add(-time.Hour)
	future := s.now.Add(time.Hour)

	Expect((&Task{}).IsOverdue(s.now)).To(BeFalse())
	Expect((&Task{EndDate: &past}).IsOverdue(s.now)).To(BeTrue())
	Expect((&Task{EndDate: &past, Completed: true}).IsOverdue(s.now)).To(BeFalse())
	Expect((&Task{EndDate: &future}).IsOverdue(s.now)).To(BeFalse())
}

func (s *TaskTestSuite) TestApply_OnlySuppliedFields() {
	description := "keep me"
	deadline := s.now.Add(24 * time.Hour)

	task := Task{
		Title:       "A",
		Description: &description,
		EndDate:     &deadline,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}

	task.Apply(TaskPatch{Completed: Some(true)}, s.now.Add(time.Second))

	Expect(task.Title).To(Equal("A"))
	Expect(*task.Description).To(Equal("keep me"))
	Expect(task.EndDate).To(Equal(&deadline))
	Expect(task.Completed).To(BeTrue())
	Expect(task.UpdatedAt).To(Equal(s.now.Add(time.Second)))
}

func (s *TaskTestSuite) TestApply_ClearsNullableFields() {
	description := "notes"
	deadline := s.now

	task := Task{Title: "A", Description: &description, EndDate: &deadline, UpdatedAt: s.now}
	task.Apply(TaskPatch{Description: Null[string](), EndDate: Null[time.Time]()}, s.now.Add(time.Minute))

	Expect(task.Description).To(BeNil())
	Expect(task.EndDate).To(BeNil())
}

func (s *TaskTestSuite) TestApply_UpdatedAtStrictlyIncreases() {
	task := Task{Title: "A", CreatedAt: s.now, UpdatedAt: s.now}

	task.Apply(TaskPatch{Title: Some("B")}, s.now)
	Expect(task.UpdatedAt.After(s.now)).To(BeTrue())

	previous := task.UpdatedAt
	task.Apply(TaskPatch{Title: Some("C")}, s.now.Add(-time.Hour))
	Expect(task.UpdatedAt.After(previous)).To(BeTrue())
	Expect(task.UpdatedAt.Before(task.CreatedAt)).To(BeFalse())
}

func (s *TaskTestSuite) TestNewTaskStats() {
	empty := NewTaskStats(0, 0)
	assert.Equal(s.T(), 0.0, empty.CompletionRate)
	assert.Equal(s.T(), int64(0), empty.Pending)

	stats := NewTaskStats(3, 1)
	assert.Equal(s.T(), int64(2), stats.Pending)
	assert.Equal(s.T(), 33.33, stats.CompletionRate)

	assert.Equal(s.T(), 66.67, NewTaskStats(3, 2).CompletionRate)
	assert.Equal(s.T(), 100.0, NewTaskStats(4, 4).CompletionRate)
}

func (s *TaskTestSuite) TestErrorTaxonomy() {
	notFound := NotFound(42)
	Expect(notFound.Error()).To(Equal("Todo item with id 42 not found"))
	Expect(notFound.TaskID).To(Equal(int64(42)))
	Expect(KindOf(notFound)).To(Equal(KindNotFound))

	cause := errors.New("disk I/O error")
	failure := Classify(cause, "Failed to create todo item")
	Expect(IsStorageFailure(failure)).To(BeTrue())
	Expect(errors.Is(failure, cause)).To(BeTrue())

	// already classified errors keep their kind
	Expect(IsNotFound(Classify(notFound, "ignored"))).To(BeTrue())

	wrapped := errors.Join(NotFound(7), errors.New("rollback: tx done"))
	Expect(IsNotFound(wrapped)).To(BeTrue())

	Expect(KindOf(nil)).To(BeEmpty())
	Expect(Classify(nil, "unused")).To(BeNil())
}
