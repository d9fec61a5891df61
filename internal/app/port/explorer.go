package port

import (
	"context"

	"wallet_tracker/internal/domain/entity"
)

// ExplorerClient talks to one network's Etherscan-compatible explorer API.
type ExplorerClient interface {
	TxList(ctx context.Context, q entity.ExplorerQuery) ([]entity.ExplorerTx, error)
	TokenTxList(ctx context.Context, q entity.ExplorerQuery) ([]entity.ExplorerTx, error)
	// TransactionByHash returns nil without error when the explorer does not know the hash.
	TransactionByHash(ctx context.Context, hash string) (*entity.ExplorerProxyTx, error)
	TransactionReceipt(ctx context.Context, hash string) (*entity.ExplorerProxyReceipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	// Configured reports whether an API key is present.
	Configured() bool
}

// ExplorerProvider resolves the explorer client of a network.
type ExplorerProvider interface {
	Explorer(networkIdentifier string) (ExplorerClient, bool)
}
