// Package web provides HTTP handlers and REST API endpoints for running and
// inspecting optimizations.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/optimizer"
	"github.com/dukex/agentopt/pkg/persistence"
)

type APIHandlers struct {
	optimizer   *optimizer.Optimizer
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	opt *optimizer.Optimizer,
	persist persistence.Persistence,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		optimizer:   opt,
		persistence: persist,
		validator:   validate,
		logger:      logger,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	message := "Agentopt API is healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		message = "Agentopt API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

// CreateOptimization runs one optimization synchronously and persists the
// result. A run that terminates with reason "failed" is still persisted and
// returned; only input validation maps to a 4xx.
func (h *APIHandlers) CreateOptimization(c fiber.Ctx) error {
	var req OptimizeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.optimizer.Optimize(c.Context(), req.toInput())
	if errors.Is(err, optimizer.ErrConfiguration) {
		// Configuration errors never start the loop; a run that failed
		// mid-loop is a valid outcome and gets persisted like any other.
		return handleOptimizerError(c, err)
	}

	if saveErr := h.persistence.ResultRepository().Save(c.Context(), result); saveErr != nil {
		h.logger.Error("Failed to persist optimization result", "result_id", result.ID, "error", saveErr)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// CreateBatchOptimization runs several optimizations and returns the
// outcomes index-aligned with the request.
func (h *APIHandlers) CreateBatchOptimization(c fiber.Ctx) error {
	var req BatchOptimizeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	inputs := make([]models.OptimizationInput, 0, len(req.Jobs))
	for _, job := range req.Jobs {
		inputs = append(inputs, job.toInput())
	}

	outcomes := h.optimizer.BatchOptimize(c.Context(), inputs)

	entries := make([]BatchEntry, len(outcomes))
	for i, outcome := range outcomes {
		entries[i] = BatchEntry{Result: outcome.Result}

		if outcome.Err != nil {
			entries[i].Error = outcome.Err.Error()
		}

		if outcome.Result != nil {
			if err := h.persistence.ResultRepository().Save(c.Context(), outcome.Result); err != nil {
				h.logger.Error("Failed to persist batch result", "result_id", outcome.Result.ID, "error", err)
			}
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"results": entries})
}

func (h *APIHandlers) GetOptimizations(c fiber.Ctx) error {
	results, err := h.persistence.ResultRepository().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"results": results, "total_count": len(results)})
}

func (h *APIHandlers) GetOptimization(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Optimization ID is required")
	}

	result, err := h.persistence.ResultRepository().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsResultNotFound(err) {
			return notFound(c, "Optimization result not found")
		}

		return internalError(c, err)
	}

	return c.JSON(result)
}

// CreateComparison evaluates two configurations against the same input and
// expected output.
func (h *APIHandlers) CreateComparison(c fiber.Ctx) error {
	var req CompareRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	objective := req.Objective
	if objective == "" {
		objective = models.ObjectiveAccuracy
	}

	comparison, err := h.optimizer.CompareConfigurations(
		c.Context(), req.ConfigA, req.ConfigB, req.Input, req.ExpectedOutput, objective)
	if err != nil {
		return handleOptimizerError(c, err)
	}

	return c.JSON(comparison)
}

func (h *APIHandlers) GetAgentConfigs(c fiber.Ctx) error {
	records, err := h.persistence.AgentConfigRepository().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"agent_configs": records, "total_count": len(records)})
}

func (h *APIHandlers) GetAgentConfig(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Agent config ID is required")
	}

	record, err := h.persistence.AgentConfigRepository().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsAgentConfigNotFound(err) {
			return notFound(c, "Agent config not found")
		}

		return internalError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) SaveAgentConfig(c fiber.Ctx) error {
	var req SaveAgentConfigRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := req.Tree.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	record := &models.AgentConfigRecord{ID: req.ID, Tree: req.Tree}

	if err := h.persistence.AgentConfigRepository().Save(c.Context(), record); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *APIHandlers) DeleteAgentConfig(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Agent config ID is required")
	}

	if err := h.persistence.AgentConfigRepository().Delete(c.Context(), id); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
