package http

import (
	"todoapi/internal/adapter/database"
	"todoapi/internal/adapter/database/repository"
	"todoapi/internal/adapter/http/handler"
	"todoapi/internal/adapter/http/validation"
	"todoapi/internal/core/port"
	"todoapi/internal/core/service"
	"todoapi/pkg/config"
)

type Container struct {
	TaskRepo    port.TaskRepository
	TaskService port.TaskService

	TaskHandler   *handler.TaskHandler
	HealthHandler *handler.HealthHandler
}

func NewContainer(db *database.DB, probe port.Telemetry, logger *config.Logger, cfg *config.AppConfig) *Container {
	taskRepo := repository.NewTaskRepository(db, probe)
	taskSvc := service.NewTaskService(taskRepo, probe, logger.Logger, cfg.Pagination.MaxLimit)

	return &Container{
		TaskRepo:      taskRepo,
		TaskService:   taskSvc,
		TaskHandler:   handler.NewTaskHandler(taskSvc, validation.NewRequestValidator(), logger, cfg.Pagination),
		HealthHandler: handler.NewHealthHandler(taskSvc, logger, cfg.Version),
	}
}
