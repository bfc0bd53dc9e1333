// Package protocol defines the remote-service capabilities the contribution workflow
// depends on. Implementations live in pkg/clients; tests use pkg/mocks.
package protocol

import (
	"context"
	"math/big"
	"time"

	"github.com/sudao/sudao/pkg/models"
)

// ApproveArgs mirrors the ICRC-2 approve call.
type ApproveArgs struct {
	FromSubaccount *models.Subaccount
	Spender        models.Account
	Amount         *big.Int
	Fee            *big.Int
	// ExpectedAllowance guards against overwriting an allowance the caller doesn't know
	// about: the ledger rejects the call unless the current allowance equals it.
	ExpectedAllowance *big.Int
	ExpiresAt         time.Time
	CreatedAt         time.Time
	Memo              []byte
}

// LedgerClient is a token ledger (deposit asset or governance token).
type LedgerClient interface {
	// Approve authorizes the spender and returns the ledger transaction (block) index.
	Approve(ctx context.Context, args ApproveArgs) (*big.Int, error)
	BalanceOf(ctx context.Context, account models.Account) (*big.Int, error)
}
