package port

import (
	"context"
	"math/big"

	"wallet_tracker/internal/domain/entity"

	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader is the shared set of chain primitives every network adapter builds on.
type ChainReader interface {
	// GetNativeBalance returns the native balance as a decimal string.
	GetNativeBalance(ctx context.Context, address string) (string, error)

	// GetTokenBalance returns the ERC-20 balance described by entry.
	GetTokenBalance(ctx context.Context, wallet string, entry entity.TokenInfo) (*entity.TokenBalance, error)

	GetTokenMetadata(ctx context.Context, contract string) (*entity.TokenMetadata, error)

	// GetTransactionReceipt returns nil without error when the transaction is not mined.
	GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetBlockWithTransactions(ctx context.Context, number uint64) (*entity.RawBlock, error)

	// GetGasPrice returns the suggested gas price, or zero when the node cannot provide one.
	GetGasPrice(ctx context.Context) *big.Int
	EstimateGas(ctx context.Context, req entity.GasEstimateRequest) (uint64, error)

	ValidateAddress(address string) bool
	FormatAddress(address string) (string, error)
	GetTransactionConfirmations(ctx context.Context, hash string) (uint64, error)
	GetTransactionStatus(ctx context.Context, hash string) (entity.TxStatus, error)

	// Definition returns the network definition associated with this reader.
	Definition() entity.NetworkDefinition
}

// ChainDataSource is the wallet-level view of one network.
type ChainDataSource interface {
	GetWalletBalance(ctx context.Context, address string) (*entity.WalletData, error)
	GetTokenBalances(ctx context.Context, address string) ([]entity.TokenBalance, error)
	GetTransactionHistory(ctx context.Context, address string, limit int) ([]entity.Transaction, error)
	GetTokenTransfers(ctx context.Context, address string, limit int) ([]entity.Transaction, error)
	EstimateGas(ctx context.Context, req entity.GasEstimateRequest) (uint64, error)
	Definition() entity.NetworkDefinition
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	GetAllNetworkDefinitions() []entity.NetworkDefinition
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}

// ChainReaderProvider hands out one ChainReader per network.
type ChainReaderProvider interface {
	GetClient(networkDefinition entity.NetworkDefinition) (ChainReader, error)
}

// ChainDataSourceProvider resolves network adapters by identifier.
type ChainDataSourceProvider interface {
	Get(identifier string) (ChainDataSource, error)
	All() []ChainDataSource
}
