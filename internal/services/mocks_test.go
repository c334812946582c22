package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dragon-treasure/internal/genlayer"
)

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) ReadContract(ctx context.Context, p genlayer.ReadParams) (any, error) {
	args := m.Called(ctx, p)
	return args.Get(0), args.Error(1)
}

func (m *MockChainClient) WriteContract(ctx context.Context, p genlayer.WriteParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) WaitForTransactionReceipt(ctx context.Context, hash string, opts genlayer.WaitOptions) (genlayer.Receipt, error) {
	args := m.Called(ctx, hash, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(genlayer.Receipt), args.Error(1)
}

func liteWait() any {
	return mock.MatchedBy(func(o genlayer.WaitOptions) bool { return !o.FullTransaction })
}

func fullWait() any {
	return mock.MatchedBy(func(o genlayer.WaitOptions) bool {
		return o.FullTransaction && o.Retries == 1
	})
}
