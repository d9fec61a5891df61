package network

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"wallet_tracker/internal/domain/entity"

	"github.com/ethereum/go-ethereum/core/types"
)

var errBoom = errors.New("boom")

type fakeReader struct {
	def           entity.NetworkDefinition
	native        string
	nativeErr     error
	tokenBalances map[string]*big.Int
	tokenErrs     map[string]error
	head          uint64
	headErr       error
	blocks        map[uint64]*entity.RawBlock
	blockErrs     map[uint64]error
	receipts      map[string]*types.Receipt
	receiptErrs   map[string]error

	mu          sync.Mutex
	blockCalls  []uint64
	nativeCalls int
}

func newFakeReader(def entity.NetworkDefinition) *fakeReader {
	return &fakeReader{
		def:           def,
		native:        "0",
		tokenBalances: map[string]*big.Int{},
		tokenErrs:     map[string]error{},
		blocks:        map[uint64]*entity.RawBlock{},
		blockErrs:     map[uint64]error{},
		receipts:      map[string]*types.Receipt{},
		receiptErrs:   map[string]error{},
	}
}

func (r *fakeReader) GetNativeBalance(context.Context, string) (string, error) {
	r.mu.Lock()
	r.nativeCalls++
	r.mu.Unlock()
	return r.native, r.nativeErr
}

func (r *fakeReader) GetTokenBalance(_ context.Context, _ string, entry entity.TokenInfo) (*entity.TokenBalance, error) {
	key := strings.ToLower(entry.Address)
	if err := r.tokenErrs[key]; err != nil {
		return nil, err
	}
	raw, ok := r.tokenBalances[key]
	if !ok {
		raw = new(big.Int)
	}
	return &entity.TokenBalance{
		ContractAddress: entry.Address,
		Symbol:          entry.Symbol,
		Decimals:        entry.Decimals,
		Balance:         raw.String(),
		BalanceRaw:      raw,
		ValueUSD:        float64(raw.Int64()),
		Network:         r.def.Identifier,
	}, nil
}

func (r *fakeReader) GetTokenMetadata(context.Context, string) (*entity.TokenMetadata, error) {
	return nil, errBoom
}

func (r *fakeReader) GetTransactionReceipt(_ context.Context, hash string) (*types.Receipt, error) {
	if err := r.receiptErrs[hash]; err != nil {
		return nil, err
	}
	return r.receipts[hash], nil
}

func (r *fakeReader) GetBlockNumber(context.Context) (uint64, error) {
	return r.head, r.headErr
}

func (r *fakeReader) GetBlockWithTransactions(_ context.Context, number uint64) (*entity.RawBlock, error) {
	r.mu.Lock()
	r.blockCalls = append(r.blockCalls, number)
	r.mu.Unlock()
	if err := r.blockErrs[number]; err != nil {
		return nil, err
	}
	if blk, ok := r.blocks[number]; ok {
		return blk, nil
	}
	return &entity.RawBlock{Number: number, Timestamp: 1_700_000_000 + number}, nil
}

func (r *fakeReader) GetGasPrice(context.Context) *big.Int { return big.NewInt(0) }

func (r *fakeReader) EstimateGas(context.Context, entity.GasEstimateRequest) (uint64, error) {
	return 21000, nil
}

func (r *fakeReader) ValidateAddress(address string) bool { return entity.IsAddress(address) }

func (r *fakeReader) FormatAddress(address string) (string, error) { return address, nil }

func (r *fakeReader) GetTransactionConfirmations(context.Context, string) (uint64, error) {
	return 0, nil
}

func (r *fakeReader) GetTransactionStatus(context.Context, string) (entity.TxStatus, error) {
	return entity.TxStatusPending, nil
}

func (r *fakeReader) Definition() entity.NetworkDefinition { return r.def }

type fakeExplorer struct {
	configured bool
	rows       []entity.ExplorerTx
	tokenRows  []entity.ExplorerTx
	err        error

	mu      sync.Mutex
	queries []entity.ExplorerQuery
}

func (e *fakeExplorer) TxList(_ context.Context, q entity.ExplorerQuery) ([]entity.ExplorerTx, error) {
	e.mu.Lock()
	e.queries = append(e.queries, q)
	e.mu.Unlock()
	return e.rows, e.err
}

func (e *fakeExplorer) TokenTxList(_ context.Context, q entity.ExplorerQuery) ([]entity.ExplorerTx, error) {
	return e.tokenRows, e.err
}

func (e *fakeExplorer) TransactionByHash(context.Context, string) (*entity.ExplorerProxyTx, error) {
	return nil, nil
}

func (e *fakeExplorer) TransactionReceipt(context.Context, string) (*entity.ExplorerProxyReceipt, error) {
	return nil, nil
}

func (e *fakeExplorer) BlockNumber(context.Context) (uint64, error) { return 0, nil }

func (e *fakeExplorer) BlockTimestamp(context.Context, uint64) (uint64, error) { return 0, nil }

func (e *fakeExplorer) Configured() bool { return e.configured }

type fixedPrices struct{ native float64 }

func (p fixedPrices) GetPriceUSD(context.Context, entity.NetworkDefinition, string) float64 {
	return 0
}

func (p fixedPrices) GetNativePriceUSD(context.Context, entity.NetworkDefinition) float64 {
	return p.native
}
