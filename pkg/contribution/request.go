package contribution

import (
	"math/big"
	"slices"

	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/protocol"
)

// Request is the immutable input of one contribution.
type Request struct {
	// Amount of the deposit asset, in its smallest unit.
	Amount *big.Int
	// Account pays the deposit and receives the governance tokens.
	Account models.Account
	// Exchange is the AMM account that is approved as spender.
	Exchange models.Account
	// DepositAsset is the ledger of the asset paid in (the swap's token_in).
	DepositAsset models.Principal
	Memo         []byte
}

func (r Request) clone() Request {
	c := r
	c.Amount = models.CloneAmount(r.Amount)
	c.Memo = slices.Clone(r.Memo)

	return c
}

// Clients are the remote capabilities injected per run.
type Clients struct {
	Ledger   protocol.LedgerClient
	Exchange protocol.ExchangeClient
	Balances protocol.BalanceQueryClient
}

// MaxMemoLength is the ICRC-2 memo limit in bytes.
const MaxMemoLength = 32

func validateRequest(req Request, clients Clients) *StepError {
	switch {
	case req.Amount == nil || req.Amount.Sign() <= 0:
		return newValidationError("amount must be greater than zero")
	case req.Account.IsZero():
		return newValidationError("depositor account is required")
	case req.Exchange.IsZero():
		return newValidationError("exchange account is required")
	case req.DepositAsset.IsEmpty():
		return newValidationError("deposit asset is required")
	case len(req.Memo) > MaxMemoLength:
		return newValidationError("memo is longer than 32 bytes")
	case clients.Ledger == nil:
		return newValidationError("ledger client is required")
	case clients.Exchange == nil:
		return newValidationError("exchange client is required")
	case clients.Balances == nil:
		return newValidationError("balance query client is required")
	}

	return nil
}
