// Package clients composes the protocol clients used by the contribution workflow.
package clients

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/protocol"
)

// LedgerBalances reads an account's deposit and governance balances from their two
// ledgers, one call after the other.
type LedgerBalances struct {
	Deposit    protocol.LedgerClient
	Governance protocol.LedgerClient
	Clock      clockwork.Clock
}

func NewLedgerBalances(deposit, governance protocol.LedgerClient) *LedgerBalances {
	return &LedgerBalances{Deposit: deposit, Governance: governance, Clock: clockwork.NewRealClock()}
}

func (b *LedgerBalances) BalancesOf(ctx context.Context, account models.Account) (models.Balances, error) {
	deposit, err := b.Deposit.BalanceOf(ctx, account)
	if err != nil {
		return models.Balances{}, fmt.Errorf("deposit balance: %w", err)
	}

	err = ctx.Err()
	if err != nil {
		return models.Balances{}, err
	}

	governance, err := b.Governance.BalanceOf(ctx, account)
	if err != nil {
		return models.Balances{}, fmt.Errorf("governance balance: %w", err)
	}

	return models.NewBalances(account, deposit, governance, b.Clock.Now()), nil
}
