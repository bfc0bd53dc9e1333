package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/protocol"
	"github.com/sudao/sudao/pkg/registry"
	"github.com/sudao/sudao/pkg/services"
)

// runProblem is a problem document carrying the run it refers to.
type runProblem struct {
	*problems.Problem

	Run *models.RunRecord `json:"run,omitempty"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// rejected reports a run that failed validation; the failed run is included.
func rejected(c fiber.Ctx, err error, run *models.RunRecord) error {
	problem := runProblem{
		Problem: problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType(string(contribution.KindValidation)).
			WithDetail(err.Error()),
		Run: run,
	}

	return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
}

// handleServiceError maps service, workflow and catalog errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("contribution_not_found").
			WithDetail("contribution not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case registry.IsPluginNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("plugin_not_found").
			WithDetail("plugin not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsValidationError(err), errors.Is(err, models.ErrInvalidAmount):
		return badRequest(c, err.Error())

	case services.IsRateLimited(err):
		problem := problems.NewStatusProblem(429).
			WithInstance(c.Path()).
			WithType("rate_limited").
			WithDetail(err.Error())

		return c.Status(fiber.StatusTooManyRequests).JSON(problem)

	case services.IsConflictError(err), registry.IsConflict(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case contribution.IsValidation(err):
		return rejected(c, err, nil)

	case contribution.IsTransport(err), contribution.IsRemoteRejection(err), contribution.IsStaleState(err),
		isRemoteError(err):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("remote_failure").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	default:
		return internalError(c, err)
	}
}

func isRemoteError(err error) bool {
	var (
		transportErr *protocol.TransportError
		ledgerErr    *protocol.LedgerError
		exchangeErr  *protocol.ExchangeError
	)

	return errors.As(err, &transportErr) || errors.As(err, &ledgerErr) || errors.As(err, &exchangeErr)
}
