package protocol

import (
	"context"
	"math/big"

	"github.com/sudao/sudao/pkg/models"
)

type SwapArgs struct {
	TokenIn      models.Principal
	AmountIn     *big.Int
	MinAmountOut *big.Int
}

// ExchangeClient is the AMM pool converting the deposit asset into governance tokens.
type ExchangeClient interface {
	// Quote returns the expected output without committing to a trade.
	Quote(ctx context.Context, tokenIn models.Principal, amountIn *big.Int) (*big.Int, error)
	// Swap executes the trade and returns the actual output. It is not idempotent.
	Swap(ctx context.Context, args SwapArgs) (*big.Int, error)
}
