// Package web provides HTTP handlers for contributions and the plugin catalog.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/registry"
	"github.com/sudao/sudao/pkg/services"
)

type APIHandlers struct {
	logger        *slog.Logger
	contributions *services.Contributions
	catalog       *registry.Catalog
	validator     *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	contributions *services.Contributions,
	catalog *registry.Catalog,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:        logger.With("module", "web"),
		contributions: contributions,
		catalog:       catalog,
		validator:     validator,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	runs := router.Group("/contributions")
	runs.Post("/", h.StartContribution)
	runs.Get("/:id", h.GetContribution)
	runs.Post("/:id/advance", h.AdvanceContribution)
	runs.Post("/:id/run", h.RunContribution)
	runs.Post("/:id/reset", h.ResetContribution)
	runs.Post("/:id/reconcile", h.ReconcileContribution)
	runs.Delete("/:id", h.AcknowledgeContribution)

	router.Get("/accounts/:owner/contributions", h.ListContributions)

	p := router.Group("/plugins")
	p.Get("/", h.GetPlugins)
	p.Get("/:id", h.GetPlugin)
	p.Post("/:id/install", h.InstallPlugin)
	p.Post("/:id/uninstall", h.UninstallPlugin)
	p.Post("/:id/toggle", h.TogglePlugin)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	journalCheck, ok := h.contributions.HealthCheck(c.Context())

	status := "unhealthy"
	message := "SUDAO API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "SUDAO API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"journal":  journalCheck,
			"sessions": h.contributions.Len(),
			"plugins":  len(h.catalog.Installed()),
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) parseContributionRequest(c fiber.Ctx) (services.StartRequest, error) {
	var req ContributionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return services.StartRequest{}, errors.New("invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return services.StartRequest{}, err
	}

	return req.toStart()
}

func (h *APIHandlers) StartContribution(c fiber.Ctx) error {
	req, err := h.parseContributionRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.contributions.Start(c.Context(), req)
	if err != nil && !contribution.IsValidation(err) {
		return handleServiceError(c, err)
	}

	record, recErr := session.Record()
	if recErr != nil {
		return internalError(c, recErr)
	}

	if err != nil {
		return rejected(c, err, record)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *APIHandlers) GetContribution(c fiber.Ctx) error {
	record, err := h.contributions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

// AdvanceContribution executes one step. A step that fails is reported in the run
// state with 200; only errors outside the workflow become problems.
func (h *APIHandlers) AdvanceContribution(c fiber.Ctx) error {
	session, result, err := h.contributions.Advance(c.Context(), c.Params("id"))
	if err != nil && !isStepFailure(err) {
		return handleServiceError(c, err)
	}

	record, err := session.Record()
	if err != nil {
		return internalError(c, err)
	}

	response := AdvanceResponse{Run: record}

	if result != nil {
		response.Result, err = contribution.MarshalResult(result)
		if err != nil {
			return internalError(c, err)
		}
	}

	return c.JSON(response)
}

func (h *APIHandlers) RunContribution(c fiber.Ctx) error {
	session, err := h.contributions.Run(c.Context(), c.Params("id"))
	if err != nil && !isStepFailure(err) {
		return handleServiceError(c, err)
	}

	return h.sendSession(c, session)
}

func (h *APIHandlers) ResetContribution(c fiber.Ctx) error {
	req, err := h.parseContributionRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.contributions.Reset(c.Context(), c.Params("id"), req)
	if err != nil && !contribution.IsValidation(err) {
		return handleServiceError(c, err)
	}

	record, recErr := session.Record()
	if recErr != nil {
		return internalError(c, recErr)
	}

	if err != nil {
		return rejected(c, err, record)
	}

	return c.JSON(record)
}

func (h *APIHandlers) ReconcileContribution(c fiber.Ctx) error {
	session, balances, err := h.contributions.Reconcile(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	record, err := session.Record()
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(ReconcileResponse{Run: record, Balances: balances})
}

func (h *APIHandlers) AcknowledgeContribution(c fiber.Ctx) error {
	err := h.contributions.Acknowledge(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListContributions(c fiber.Ctx) error {
	owner := c.Params("owner")

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		limit = parsed
	}

	records, err := h.contributions.List(c.Context(), owner, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ContributionListResponse{Owner: owner, Contributions: records})
}

func (h *APIHandlers) GetPlugins(c fiber.Ctx) error {
	return c.JSON(h.catalog.Plugins())
}

func (h *APIHandlers) GetPlugin(c fiber.Ctx) error {
	plugin, err := h.catalog.Plugin(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(plugin)
}

func (h *APIHandlers) InstallPlugin(c fiber.Ctx) error {
	plugin, err := h.catalog.Install(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(plugin)
}

func (h *APIHandlers) UninstallPlugin(c fiber.Ctx) error {
	plugin, err := h.catalog.Uninstall(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(plugin)
}

func (h *APIHandlers) TogglePlugin(c fiber.Ctx) error {
	var req ToggleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	plugin, err := h.catalog.Toggle(c.Context(), c.Params("id"), *req.Enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(plugin)
}

func (h *APIHandlers) sendSession(c fiber.Ctx, session services.Session) error {
	record, err := session.Record()
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(record)
}

// isStepFailure reports errors already recorded as a failed step in the run state.
func isStepFailure(err error) bool {
	var stepErr *contribution.StepError

	return errors.As(err, &stepErr)
}
