package mocks

import (
	"context"
	"math/big"

	"github.com/stretchr/testify/mock"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/protocol"
)

// MockLedgerClient is a mock implementation of protocol.LedgerClient interface.
type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) Approve(ctx context.Context, args protocol.ApproveArgs) (*big.Int, error) {
	ret := m.Called(ctx, args)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}

	return ret.Get(0).(*big.Int), ret.Error(1)
}

func (m *MockLedgerClient) BalanceOf(ctx context.Context, account models.Account) (*big.Int, error) {
	ret := m.Called(ctx, account)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}

	return ret.Get(0).(*big.Int), ret.Error(1)
}

// MockExchangeClient is a mock implementation of protocol.ExchangeClient interface.
type MockExchangeClient struct {
	mock.Mock
}

func (m *MockExchangeClient) Quote(ctx context.Context, tokenIn models.Principal, amountIn *big.Int) (*big.Int, error) {
	ret := m.Called(ctx, tokenIn, amountIn)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}

	return ret.Get(0).(*big.Int), ret.Error(1)
}

func (m *MockExchangeClient) Swap(ctx context.Context, args protocol.SwapArgs) (*big.Int, error) {
	ret := m.Called(ctx, args)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}

	return ret.Get(0).(*big.Int), ret.Error(1)
}

// MockBalanceQueryClient is a mock implementation of protocol.BalanceQueryClient interface.
type MockBalanceQueryClient struct {
	mock.Mock
}

func (m *MockBalanceQueryClient) BalancesOf(ctx context.Context, account models.Account) (models.Balances, error) {
	ret := m.Called(ctx, account)

	return ret.Get(0).(models.Balances), ret.Error(1)
}
