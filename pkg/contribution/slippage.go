package contribution

import "math/big"

const bpsDenominator = 10_000

// MinAmountOut applies the slippage tolerance to a quote:
// floor(expectedOut * (10000 - bps) / 10000). All callers use this one rounding rule.
func MinAmountOut(expectedOut *big.Int, slippageBps uint32) *big.Int {
	if expectedOut == nil || expectedOut.Sign() <= 0 {
		return new(big.Int)
	}

	if slippageBps >= bpsDenominator {
		return new(big.Int)
	}

	keep := big.NewInt(int64(bpsDenominator - slippageBps))
	out := new(big.Int).Mul(expectedOut, keep)

	return out.Quo(out, big.NewInt(bpsDenominator))
}
