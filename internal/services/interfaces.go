package services

import (
	"context"
	"time"

	"dragon-treasure/internal/genlayer"
	"dragon-treasure/internal/models"
)

// ChainClient is the part of the GenLayer client the claim flow depends on.
type ChainClient interface {
	ReadContract(ctx context.Context, p genlayer.ReadParams) (any, error)
	WriteContract(ctx context.Context, p genlayer.WriteParams) (string, error)
	WaitForTransactionReceipt(ctx context.Context, hash string, opts genlayer.WaitOptions) (genlayer.Receipt, error)
}

// ChainFactory builds a chain client signing with the given private key.
type ChainFactory func(privateKey string) (ChainClient, error)

// SessionStore persists player sessions and everything hanging off them.
type SessionStore interface {
	StorePlayerSession(ctx context.Context, session *models.PlayerSession) error
	GetPlayerSession(ctx context.Context, sessionID string) (*models.PlayerSession, error)
	DeletePlayerSession(ctx context.Context, sessionID string) error

	StoreAccountKey(ctx context.Context, sessionID, key string) error
	GetAccountKey(ctx context.Context, sessionID string) (string, error)

	StoreContractAddress(ctx context.Context, sessionID, address string) error
	GetContractAddress(ctx context.Context, sessionID string) (string, error)

	PushHistory(ctx context.Context, sessionID string, entry *models.GameHistoryEntry) error
	GetHistory(ctx context.Context, sessionID string, limit int64) ([]*models.GameHistoryEntry, error)

	CheckRateLimit(ctx context.Context, sessionID, action string, limit int, window time.Duration) (bool, error)
}
