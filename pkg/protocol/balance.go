package protocol

import (
	"context"

	"github.com/sudao/sudao/pkg/models"
)

// BalanceQueryClient reads both asset balances of an account.
type BalanceQueryClient interface {
	BalancesOf(ctx context.Context, account models.Account) (models.Balances, error)
}
