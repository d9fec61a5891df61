package port

import (
	"context"
	"time"

	"wallet_tracker/internal/domain/entity"
)

// TransactionService serves cached, paginated transaction history for one network.
type TransactionService interface {
	GetTransactionHistory(ctx context.Context, address string, limit, page int) (*entity.TransactionPage, error)
	GetTransactionsByType(ctx context.Context, address string, txType entity.TxType, limit, page int) (*entity.TransactionPage, error)
	GetTransactionsByDateRange(ctx context.Context, address string, start, end time.Time, limit, page int) (*entity.TransactionPage, error)
	GetTransactionDetails(ctx context.Context, hash, network string) (*entity.Transaction, error)
	ClearExpiredCache(ctx context.Context) (int, error)
	ClearCache(ctx context.Context) error
	GetCacheStats(ctx context.Context) (entity.CacheStats, error)
	Network() entity.NetworkDefinition
}
