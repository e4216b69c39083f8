package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	. "todoapi/internal/adapter/http/helper"
	"todoapi/internal/core/domain"
	"todoapi/internal/core/model/request"
	"todoapi/internal/core/model/response"
	"todoapi/internal/core/port"
	"todoapi/pkg/config"
	. "todoapi/pkg/tracing"
)

type TaskHandler struct {
	svc          port.TaskService
	validator    port.Validator
	Logger       *config.Logger
	defaultLimit int
	now          func() time.Time
}

func NewTaskHandler(svc port.TaskService, validator port.Validator, logger *config.Logger, pagination config.PaginationConfig) *TaskHandler {
	defaultLimit := pagination.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = domain.DefaultPageLimit
	}

	return &TaskHandler{
		svc:          svc,
		validator:    validator,
		Logger:       logger,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

func (h *TaskHandler) startSpan(c *gin.Context, operation string) trace.Span {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo."+operation, []attribute.KeyValue{
		attribute.String("handler.operation", operation),
		attribute.String("handler.method", c.Request.Method),
		attribute.String("handler.path", c.FullPath()),
	})

	c.Request = c.Request.WithContext(ctx)

	return span
}

// fail writes the error response; only storage failures mark the span.
func (h *TaskHandler) fail(c *gin.Context, span trace.Span, err error) {
	if domain.IsStorageFailure(err) || domain.KindOf(err) == "" {
		AddSpanError(span, err)
	}

	SendDomainError(c, err)
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status())
}

func (h *TaskHandler) Create(c *gin.Context) {
	span := h.startSpan(c, "Create")
	defer span.End()

	var req request.CreateTaskRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		SendBindingError(c, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		SendError(c, http.StatusUnprocessableEntity, string(domain.KindValidation), h.validator.FormatValidationErrors(err))
		return
	}

	task, err := h.svc.Create(c.Request.Context(), req.ToDraft())
	if err != nil {
		h.fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))

	SendSuccess(c, http.StatusCreated, response.NewTaskResponse(task, h.now()))
}

func (h *TaskHandler) List(c *gin.Context) {
	span := h.startSpan(c, "List")
	defer span.End()

	var query request.ListQuery

	if err := c.ShouldBindQuery(&query); err != nil {
		SendBindingError(c, err)
		return
	}

	skip, limit := h.page(query.Skip, query.Limit)

	tasks, err := h.svc.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	h.sendList(c, span, tasks, skip, limit)
}

func (h *TaskHandler) Search(c *gin.Context) {
	span := h.startSpan(c, "Search")
	defer span.End()

	var query request.SearchQuery

	if err := c.ShouldBindQuery(&query); err != nil {
		SendBindingError(c, err)
		return
	}

	from, err := parseTimestamp("end_date_from", query.EndDateFrom)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	to, err := parseTimestamp("end_date_to", query.EndDateTo)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	skip, limit := h.page(query.Skip, query.Limit)

	tasks, err := h.svc.Search(c.Request.Context(), domain.SearchFilter{
		Completed:   query.Completed,
		EndDateFrom: from,
		EndDateTo:   to,
		Skip:        skip,
		Limit:       limit,
	})
	if err != nil {
		h.fail(c, span, err)
		return
	}

	h.sendList(c, span, tasks, skip, limit)
}

func (h *TaskHandler) Get(c *gin.Context) {
	span := h.startSpan(c, "Get")
	defer span.End()

	id, err := parseID(c)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", id))

	task, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewTaskResponse(task, h.now()))
}

func (h *TaskHandler) Update(c *gin.Context) {
	span := h.startSpan(c, "Update")
	defer span.End()

	id, err := parseID(c)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", id))

	var req request.UpdateTaskRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		SendBindingError(c, err)
		return
	}

	task, err := h.svc.Update(c.Request.Context(), id, req.ToPatch())
	if err != nil {
		h.fail(c, span, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewTaskResponse(task, h.now()))
}

func (h *TaskHandler) Delete(c *gin.Context) {
	span := h.startSpan(c, "Delete")
	defer span.End()

	id, err := parseID(c)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", id))

	deleted, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.DeleteResponse{ID: id, Deleted: deleted}, "Todo item deleted successfully")
}

func (h *TaskHandler) Stats(c *gin.Context) {
	span := h.startSpan(c, "Stats")
	defer span.End()

	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, span, err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewStatsResponse(stats))
}

func (h *TaskHandler) page(skip, limit *int) (int, int) {
	s, l := 0, h.defaultLimit

	if skip != nil {
		s = *skip
	}

	if limit != nil {
		l = *limit
	}

	return s, l
}

func (h *TaskHandler) sendList(c *gin.Context, span trace.Span, tasks []domain.Task, skip, limit int) {
	span.SetAttributes(attribute.Int("response.size", len(tasks)))

	c.JSON(http.StatusOK, response.ListResponse{
		Size:       len(tasks),
		Data:       response.NewTaskResponses(tasks, h.now()),
		Pagination: response.Pagination{Skip: skip, Limit: limit},
	})
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, domain.Validation("id", "Todo ID must be a positive integer")
	}

	return id, domain.ValidateID(id)
}

// parseTimestamp reads an optional ISO 8601 query value.
func parseTimestamp(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}

	parsed, err := domain.ParseTimestamp(*value)
	if err != nil {
		return nil, domain.Validation(field, "Invalid "+field+", expected an ISO 8601 timestamp")
	}

	return &parsed, nil
}
