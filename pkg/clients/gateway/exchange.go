package gateway

import (
	"context"
	"math/big"

	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/protocol"
)

const (
	opQuote = "get_swap_quote"
	opSwap  = "swap"
)

// Exchange is the AMM canister reached through the gateway.
type Exchange struct {
	endpoint *endpoint
}

func NewExchange(baseURL string, opts Options) *Exchange {
	return &Exchange{endpoint: newEndpoint("exchange", baseURL, opts)}
}

type quoteRequest struct {
	TokenInID models.Principal `json:"token_in_id"`
	AmountIn  string           `json:"amount_in"`
}

type swapRequest struct {
	TokenInID    models.Principal `json:"token_in_id"`
	AmountIn     string           `json:"amount_in"`
	MinAmountOut string           `json:"min_amount_out"`
}

func (x *Exchange) Quote(ctx context.Context, tokenIn models.Principal, amountIn *big.Int) (*big.Int, error) {
	out, rejected, err := x.endpoint.call(ctx, x.endpoint.reads, opQuote, quoteRequest{
		TokenInID: tokenIn,
		AmountIn:  models.FormatAmount(amountIn),
	})
	if err != nil {
		return nil, err
	}

	if rejected != nil {
		return nil, exchangeError("quote", rejected)
	}

	return out, nil
}

func (x *Exchange) Swap(ctx context.Context, args protocol.SwapArgs) (*big.Int, error) {
	out, rejected, err := x.endpoint.call(ctx, x.endpoint.writes, opSwap, swapRequest{
		TokenInID:    args.TokenIn,
		AmountIn:     models.FormatAmount(args.AmountIn),
		MinAmountOut: models.FormatAmount(args.MinAmountOut),
	})
	if err != nil {
		return nil, err
	}

	if rejected != nil {
		return nil, exchangeError("swap", rejected)
	}

	return out, nil
}

func exchangeError(op string, r *remoteError) *protocol.ExchangeError {
	return &protocol.ExchangeError{
		Op:      op,
		Kind:    protocol.ExchangeErrorKind(r.Kind),
		Message: r.Message,
		Details: r.Details,
	}
}
