package gateway

import (
	"context"
	"math/big"
	"strconv"

	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/protocol"
)

const (
	opApprove   = "icrc2_approve"
	opBalanceOf = "icrc1_balance_of"
)

// Ledger is an ICRC-1/ICRC-2 ledger reached through the gateway.
type Ledger struct {
	endpoint *endpoint
}

func NewLedger(baseURL string, opts Options) *Ledger {
	return &Ledger{endpoint: newEndpoint("ledger", baseURL, opts)}
}

type approveRequest struct {
	FromSubaccount    *models.Subaccount `json:"from_subaccount,omitempty"`
	Spender           models.Account     `json:"spender"`
	Amount            string             `json:"amount"`
	Fee               *string            `json:"fee,omitempty"`
	ExpectedAllowance *string            `json:"expected_allowance,omitempty"`
	ExpiresAt         *string            `json:"expires_at,omitempty"`
	CreatedAtTime     *string            `json:"created_at_time,omitempty"`
	Memo              []byte             `json:"memo,omitempty"`
}

func (l *Ledger) Approve(ctx context.Context, args protocol.ApproveArgs) (*big.Int, error) {
	req := approveRequest{
		FromSubaccount:    args.FromSubaccount,
		Spender:           args.Spender,
		Amount:            models.FormatAmount(args.Amount),
		Fee:               optionalAmount(args.Fee),
		ExpectedAllowance: optionalAmount(args.ExpectedAllowance),
		Memo:              args.Memo,
	}

	if !args.ExpiresAt.IsZero() {
		req.ExpiresAt = nanos(args.ExpiresAt.UnixNano())
	}

	if !args.CreatedAt.IsZero() {
		req.CreatedAtTime = nanos(args.CreatedAt.UnixNano())
	}

	txID, rejected, err := l.endpoint.call(ctx, l.endpoint.writes, opApprove, req)
	if err != nil {
		return nil, err
	}

	if rejected != nil {
		return nil, ledgerError("approve", rejected)
	}

	return txID, nil
}

func (l *Ledger) BalanceOf(ctx context.Context, account models.Account) (*big.Int, error) {
	balance, rejected, err := l.endpoint.call(ctx, l.endpoint.reads, opBalanceOf, account)
	if err != nil {
		return nil, err
	}

	if rejected != nil {
		return nil, ledgerError("balance_of", rejected)
	}

	return balance, nil
}

func ledgerError(op string, r *remoteError) *protocol.LedgerError {
	return &protocol.LedgerError{
		Op:      op,
		Kind:    protocol.LedgerErrorKind(r.Kind),
		Message: r.Message,
		Details: r.Details,
	}
}

func optionalAmount(amount *big.Int) *string {
	if amount == nil {
		return nil
	}

	s := amount.String()

	return &s
}

func nanos(n int64) *string {
	s := strconv.FormatInt(n, 10)

	return &s
}
