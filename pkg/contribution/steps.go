package contribution

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/otelhelper"
	"github.com/sudao/sudao/pkg/protocol"
)

var errEmptyResponse = errors.New("empty response")

// execute performs exactly one remote call for step and converts its outcome into a
// result. It never returns nil.
func (h *Handle) execute(ctx context.Context, step Step) StepResult {
	c := h.coordinator

	ctx, span := otelhelper.StartStepSpan(ctx, c.tracer, h.id, int(step), step.String(), h.request.Account.String())
	defer span.End()

	if c.config.StepTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.config.StepTimeout)
		defer cancel()
	}

	logger := c.logger.With("run_id", h.id, "step", step.String())
	logger.DebugContext(ctx, "Executing contribution step")

	var (
		result StepResult
		err    error
	)

	switch step {
	case StepApprove:
		result, err = h.approve(ctx)
	case StepQuote:
		result, err = h.quote(ctx)
	case StepSwap:
		result, err = h.swap(ctx)
	case StepBalances:
		result, err = h.balances(ctx)
	default:
		err = fmt.Errorf("no step %d in contribution workflow", int(step))
	}

	if err != nil {
		stepErr := classify(step, err)
		span.Fail(stepErr, string(stepErr.Kind))
		logger.ErrorContext(ctx, "Contribution step failed",
			"kind", stepErr.Kind,
			"reason", stepErr.Reason,
			"approval_granted", h.state.ApprovalGranted(),
		)

		return stepErr.result()
	}

	span.Succeed()
	logger.InfoContext(ctx, "Contribution step completed")

	return result
}

func (h *Handle) approve(ctx context.Context) (StepResult, error) {
	c := h.coordinator
	now := c.clock.Now()
	allowance := new(big.Int).Add(h.request.Amount, c.config.TransferFee)
	expiresAt := now.Add(c.config.ApprovalTTL)

	txID, err := h.clients.Ledger.Approve(ctx, protocol.ApproveArgs{
		FromSubaccount:    h.request.Account.Subaccount,
		Spender:           h.request.Exchange,
		Amount:            allowance,
		Fee:               models.CloneAmount(c.config.ApproveFee),
		ExpectedAllowance: new(big.Int),
		ExpiresAt:         expiresAt,
		CreatedAt:         now,
		Memo:              h.request.Memo,
	})
	if err != nil {
		return nil, err
	}

	if txID == nil {
		return nil, &protocol.TransportError{Op: "approve", Err: errEmptyResponse}
	}

	return Approved{AllowanceTxID: models.CloneAmount(txID), Allowance: allowance, ExpiresAt: expiresAt}, nil
}

func (h *Handle) quote(ctx context.Context) (StepResult, error) {
	expected, err := h.clients.Exchange.Quote(ctx, h.request.DepositAsset, models.CloneAmount(h.request.Amount))
	if err != nil {
		return nil, err
	}

	if expected == nil {
		return nil, &protocol.TransportError{Op: "quote", Err: errEmptyResponse}
	}

	return QuoteObtained{ExpectedOut: models.CloneAmount(expected)}, nil
}

func (h *Handle) swap(ctx context.Context) (StepResult, error) {
	quote, ok := find[QuoteObtained](h.state.Results)
	if !ok {
		return nil, &StepError{Step: StepSwap, Kind: KindValidation, Reason: "swap requires a quote", Err: ErrValidation}
	}

	minOut := MinAmountOut(quote.ExpectedOut, h.coordinator.config.SlippageBps)

	actual, err := h.clients.Exchange.Swap(ctx, protocol.SwapArgs{
		TokenIn:      h.request.DepositAsset,
		AmountIn:     models.CloneAmount(h.request.Amount),
		MinAmountOut: models.CloneAmount(minOut),
	})
	if err != nil {
		return nil, err
	}

	if actual == nil {
		return nil, &protocol.TransportError{Op: "swap", Err: errEmptyResponse}
	}

	if actual.Cmp(minOut) < 0 {
		h.coordinator.logger.WarnContext(ctx, "Exchange returned less than the minimum output",
			"run_id", h.id,
			"actual_out", actual.String(),
			"min_amount_out", minOut.String(),
		)
	}

	return Swapped{ActualOut: models.CloneAmount(actual), MinAmountOut: minOut}, nil
}

func (h *Handle) balances(ctx context.Context) (StepResult, error) {
	balances, err := h.queryBalances(ctx)
	if err != nil {
		return nil, err
	}

	return BalancesChecked{Balances: balances}, nil
}

func (h *Handle) queryBalances(ctx context.Context) (models.Balances, error) {
	balances, err := h.clients.Balances.BalancesOf(ctx, h.request.Account)
	if err != nil {
		return models.Balances{}, err
	}

	if balances.At.IsZero() {
		balances.At = h.coordinator.clock.Now()
	}

	if balances.Account.IsZero() {
		balances.Account = h.request.Account
	}

	return models.NewBalances(balances.Account, balances.Deposit, balances.Governance, balances.At), nil
}
