package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	"todoapi/internal/adapter/database"
	"todoapi/internal/adapter/database/repository"
	"todoapi/internal/adapter/http/validation"
	"todoapi/internal/core/domain"
	"todoapi/internal/core/model/response"
	"todoapi/internal/core/port"
	"todoapi/internal/core/service"
	"todoapi/pkg/config"
	. "todoapi/pkg/test"
	"todoapi/pkg/test/factory"
)

type taskEnvelope struct {
	Data    response.TaskResponse `json:"data"`
	Message string                `json:"message"`
}

type TaskHandlerSuite struct {
	suite.Suite
	setup   *TestSetup[port.TaskRepository]
	handler *TaskHandler
	Router  *gin.Engine
}

func (s *TaskHandlerSuite) SetupTest() {
	s.setup = SetupTest(s.T(), func(db *database.DB) port.TaskRepository {
		return repository.NewTaskRepository(db, nil)
	})

	svc := service.NewTaskService(s.setup.Repo, nil, nil, 1000)

	s.handler = NewTaskHandler(svc, validation.NewRequestValidator(), config.NewNopLogger(), config.PaginationConfig{DefaultLimit: 100, MaxLimit: 1000})
	s.handler.now = func() time.Time { return factory.BaseTime.Add(24 * time.Hour) }

	s.Router = setupTaskTestRouter(s.handler, NewHealthHandler(svc, config.NewNopLogger(), "1.0.0"))
}

func (s *TaskHandlerSuite) TearDownTest() {
	TeardownTest(s.T(), s.setup)
}

func TestTaskHandlerSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TaskHandlerSuite))
}

func setupTaskTestRouter(taskHandler *TaskHandler, healthHandler *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Health)

	todos := router.Group("/todos")
	{
		todos.GET("", taskHandler.List)
		todos.POST("", taskHandler.Create)
		todos.GET("/search", taskHandler.Search)
		todos.GET("/stats", taskHandler.Stats)
		todos.GET("/:id", taskHandler.Get)
		todos.PUT("/:id", taskHandler.Update)
		todos.PATCH("/:id", taskHandler.Update)
		todos.DELETE("/:id", taskHandler.Delete)
	}

	return router
}

func (s *TaskHandlerSuite) request(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()

	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	s.Router.ServeHTTP(w, req)

	return w
}

func (s *TaskHandlerSuite) create(body string) response.TaskResponse {
	w := s.request("POST", "/todos", body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var envelope taskEnvelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &envelope))

	return envelope.Data
}

func (s *TaskHandlerSuite) insert(data map[string]any) domain.Task {
	task, err := s.setup.Repo.Create(context.Background(), factory.NewTask(data))
	s.Require().NoError(err)

	return task
}

func decodeError(w *httptest.ResponseRecorder) response.ErrorResponse {
	var body response.ErrorResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	return body
}

func (s *TaskHandlerSuite) TestCreate() {
	task := s.create(`{"title":"  Buy milk  ","description":"2 liters","end_date":"2025-01-15T10:30:00Z"}`)

	Expect(task.ID).To(BeNumerically(">", 0))
	Expect(task.Title).To(Equal("Buy milk"))
	Expect(*task.Description).To(Equal("2 liters"))
	Expect(task.Completed).To(BeFalse())
	Expect(task.EndDate.Equal(time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC))).To(BeTrue())
	Expect(task.IsOverdue).To(BeTrue())
	Expect(task.UpdatedAt).To(Equal(task.CreatedAt))
}

func (s *TaskHandlerSuite) TestCreate_ValidationErrors() {
	cases := []struct {
		body  string
		field string
	}{
		{body: `{}`, field: "title"},
		{body: `{"title":"   "}`, field: "title"},
		{body: `{"title":"` + strings.Repeat("a", 201) + `"}`, field: "title"},
		{body: `{"title":"ok","description":"` + strings.Repeat("a", 1001) + `"}`, field: "description"},
		{body: `{"title":"ok","completed":"yes"}`, field: "completed"},
	}

	for _, tc := range cases {
		w := s.request("POST", "/todos", tc.body)

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity), tc.body)

		body := decodeError(w)
		Expect(body.Error.Code).To(Equal("VALIDATION_ERROR"))
		Expect(body.Error.Errors).NotTo(BeEmpty())
		Expect(body.Error.Errors[0].Field).To(Equal(tc.field), tc.body)
	}
}

func (s *TaskHandlerSuite) TestCreate_MalformedJSON() {
	w := s.request("POST", "/todos", `{"title":`)

	Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
	Expect(decodeError(w).Error.Code).To(Equal("VALIDATION_ERROR"))
}

func (s *TaskHandlerSuite) TestCreate_NaiveDeadlineIsUTC() {
	want := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)

	task := s.create(`{"title":"A","end_date":"2025-01-15T10:30:00"}`)
	Expect(task.EndDate.Equal(want)).To(BeTrue())

	w := s.request("GET", "/todos/search?end_date_from=2025-01-15T10:30:00&end_date_to=2025-01-15T10:30:00", "")
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

	var list response.ListResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &list)).To(Succeed())
	Expect(list.Size).To(Equal(1))

	w = s.request("PATCH", "/todos/"+itoa(task.ID), `{"end_date":"2025-01-16"}`)
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

	var envelope taskEnvelope
	Expect(json.Unmarshal(w.Body.Bytes(), &envelope)).To(Succeed())
	Expect(envelope.Data.EndDate.Equal(time.Date(2025, time.January, 16, 0, 0, 0, 0, time.UTC))).To(BeTrue())
}

func (s *TaskHandlerSuite) TestCreate_InvalidDeadline() {
	w := s.request("POST", "/todos", `{"title":"A","end_date":"tomorrow"}`)

	Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
	Expect(decodeError(w).Error.Code).To(Equal("VALIDATION_ERROR"))
}

func (s *TaskHandlerSuite) TestGet() {
	created := s.create(`{"title":"A"}`)

	w := s.request("GET", "/todos/"+itoa(created.ID), "")
	Expect(w.Code).To(Equal(http.StatusOK))

	var envelope taskEnvelope
	Expect(json.Unmarshal(w.Body.Bytes(), &envelope)).To(Succeed())
	Expect(envelope.Data.Title).To(Equal("A"))
	Expect(envelope.Data.EndDate).To(BeNil())
	Expect(envelope.Data.Description).To(BeNil())
}

func (s *TaskHandlerSuite) TestGet_NotFound() {
	w := s.request("GET", "/todos/999", "")

	Expect(w.Code).To(Equal(http.StatusNotFound))

	body := decodeError(w)
	Expect(body.Error.Code).To(Equal("NOT_FOUND"))
	Expect(body.Error.Errors[0].Message).To(Equal("Todo item with id 999 not found"))
	Expect(body.Error.Details).To(Equal(map[string]interface{}{"id": float64(999)}))
}

func (s *TaskHandlerSuite) TestGet_InvalidID() {
	for _, id := range []string{"0", "-4", "abc"} {
		w := s.request("GET", "/todos/"+id, "")

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity), id)
		Expect(decodeError(w).Error.Errors[0].Field).To(Equal("id"))
	}
}

func (s *TaskHandlerSuite) TestList() {
	for i := 0; i < 3; i++ {
		s.insert(map[string]any{
			"Title":     "Task " + itoa(int64(i)),
			"CreatedAt": factory.BaseTime.Add(time.Duration(i) * time.Minute),
			"UpdatedAt": factory.BaseTime.Add(time.Duration(i) * time.Minute),
		})
	}

	w := s.request("GET", "/todos?skip=1&limit=1", "")
	Expect(w.Code).To(Equal(http.StatusOK))

	var list response.ListResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &list)).To(Succeed())
	Expect(list.Size).To(Equal(1))
	Expect(list.Data[0].Title).To(Equal("Task 1"))
	Expect(list.Pagination).To(Equal(response.Pagination{Skip: 1, Limit: 1}))

	w = s.request("GET", "/todos", "")
	Expect(json.Unmarshal(w.Body.Bytes(), &list)).To(Succeed())
	Expect(list.Size).To(Equal(3))
	Expect(list.Data[0].Title).To(Equal("Task 2"))
	Expect(list.Pagination.Limit).To(Equal(100))
}

func (s *TaskHandlerSuite) TestList_Empty() {
	w := s.request("GET", "/todos", "")

	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(w.Body.String()).To(ContainSubstring(`"data":[]`))
}

func (s *TaskHandlerSuite) TestList_InvalidPagination() {
	for _, query := range []string{"?skip=-1", "?limit=0", "?limit=1001", "?limit=ten"} {
		w := s.request("GET", "/todos"+query, "")

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity), query)
		Expect(decodeError(w).Error.Code).To(Equal("VALIDATION_ERROR"))
	}
}

func (s *TaskHandlerSuite) TestSearch() {
	deadline := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)

	match := s.insert(map[string]any{"Title": "match", "EndDate": factory.TimePtr(deadline)})
	s.insert(map[string]any{"Title": "done", "Completed": true, "EndDate": factory.TimePtr(deadline)})
	s.insert(map[string]any{"Title": "no deadline"})

	w := s.request("GET", "/todos/search?completed=false&end_date_from=2025-02-01T12:00:00Z&end_date_to=2025-02-01T21:00:00%2B09:00", "")
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

	var list response.ListResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &list)).To(Succeed())
	Expect(list.Size).To(Equal(1))
	Expect(list.Data[0].ID).To(Equal(match.ID))
}

func (s *TaskHandlerSuite) TestSearch_UnescapedOffset() {
	deadline := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
	s.insert(map[string]any{"EndDate": factory.TimePtr(deadline)})

	w := s.request("GET", "/todos/search?end_date_to=2025-02-01T21:00:00+09:00", "")
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

	var list response.ListResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &list)).To(Succeed())
	Expect(list.Size).To(Equal(1))
}

func (s *TaskHandlerSuite) TestSearch_InvalidRange() {
	w := s.request("GET", "/todos/search?end_date_from=2025-03-01T00:00:00Z&end_date_to=2025-02-01T00:00:00Z", "")

	Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
	Expect(decodeError(w).Error.Errors[0].Message).To(Equal("end_date_from must be before or equal to end_date_to"))
}

func (s *TaskHandlerSuite) TestSearch_InvalidTimestamp() {
	w := s.request("GET", "/todos/search?end_date_from=yesterday", "")

	Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
	Expect(decodeError(w).Error.Errors[0].Field).To(Equal("end_date_from"))
}

func (s *TaskHandlerSuite) TestUpdate_Partial() {
	created := s.create(`{"title":"A","description":"keep"}`)

	w := s.request("PATCH", "/todos/"+itoa(created.ID), `{"completed":true}`)
	Expect(w.Code).To(Equal(http.StatusOK))

	var envelope taskEnvelope
	Expect(json.Unmarshal(w.Body.Bytes(), &envelope)).To(Succeed())
	Expect(envelope.Data.Completed).To(BeTrue())
	Expect(envelope.Data.Title).To(Equal("A"))
	Expect(*envelope.Data.Description).To(Equal("keep"))
	Expect(envelope.Data.UpdatedAt.After(created.UpdatedAt)).To(BeTrue())
}

func (s *TaskHandlerSuite) TestUpdate_NullClearsDeadline() {
	created := s.create(`{"title":"A","description":"drop","end_date":"2025-01-15T10:30:00Z"}`)

	w := s.request("PUT", "/todos/"+itoa(created.ID), `{"end_date":null,"description":null}`)
	Expect(w.Code).To(Equal(http.StatusOK))

	var envelope taskEnvelope
	Expect(json.Unmarshal(w.Body.Bytes(), &envelope)).To(Succeed())
	Expect(envelope.Data.EndDate).To(BeNil())
	Expect(envelope.Data.Description).To(BeNil())
	Expect(envelope.Data.IsOverdue).To(BeFalse())
}

func (s *TaskHandlerSuite) TestUpdate_Rejections() {
	created := s.create(`{"title":"A"}`)
	path := "/todos/" + itoa(created.ID)

	for _, body := range []string{`{}`, `{"title":null}`, `{"completed":null}`, `{"title":"  "}`} {
		w := s.request("PUT", path, body)

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity), body)
	}

	w := s.request("PUT", "/todos/424242", `{"completed":true}`)
	Expect(w.Code).To(Equal(http.StatusNotFound))
}

func (s *TaskHandlerSuite) TestDelete() {
	created := s.create(`{"title":"A"}`)
	path := "/todos/" + itoa(created.ID)

	w := s.request("DELETE", path, "")
	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(w.Body.String()).To(ContainSubstring(`"deleted":true`))

	Expect(s.request("GET", path, "").Code).To(Equal(http.StatusNotFound))
	Expect(s.request("DELETE", path, "").Code).To(Equal(http.StatusNotFound))
}

func (s *TaskHandlerSuite) TestStats() {
	s.create(`{"title":"A","completed":true}`)
	s.create(`{"title":"B"}`)

	w := s.request("GET", "/todos/stats", "")
	Expect(w.Code).To(Equal(http.StatusOK))

	var envelope struct {
		Data response.StatsResponse `json:"data"`
	}
	Expect(json.Unmarshal(w.Body.Bytes(), &envelope)).To(Succeed())
	Expect(envelope.Data).To(Equal(response.StatsResponse{Total: 2, Completed: 1, Pending: 1, CompletionRate: 50}))
}

func (s *TaskHandlerSuite) TestRootAndHealth() {
	w := s.request("GET", "/", "")
	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(w.Body.String()).To(ContainSubstring(`"health":"/health"`))

	w = s.request("GET", "/health", "")
	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(w.Body.String()).To(ContainSubstring(`"status":"healthy"`))
}

func (s *TaskHandlerSuite) TestHealth_DatabaseDown() {
	s.setup.DB.Close()

	w := s.request("GET", "/health", "")

	Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	Expect(w.Body.String()).To(ContainSubstring(`"database":"unhealthy"`))

	s.setup.DB = nil
}

func (s *TaskHandlerSuite) TestStorageFailureHidesCause() {
	s.setup.DB.Close()

	w := s.request("GET", "/todos", "")

	Expect(w.Code).To(Equal(http.StatusInternalServerError))

	body := decodeError(w)
	Expect(body.Error.Code).To(Equal("INTERNAL_ERROR"))
	Expect(w.Body.String()).NotTo(ContainSubstring("closed"))

	s.setup.DB = nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
