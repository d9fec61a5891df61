package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/pkg/utils"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ERC20 ABI minimal part: balanceOf, symbol, name, decimals.
const erc20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
}

// ethBackend is the part of *ethclient.Client the reader depends on.
type ethBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

type rawCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// EVMClient implements port.ChainReader for EVM-compatible chains.
type EVMClient struct {
	backend        ethBackend
	raw            rawCaller
	netDef         entity.NetworkDefinition
	prices         port.PriceService
	logger         port.Logger
	rpcCallTimeout time.Duration
}

// NewEVMClient dials the primary RPC URL, then each fallback, and returns the first that connects.
func NewEVMClient(
	netDef entity.NetworkDefinition,
	prices port.PriceService,
	logger port.Logger,
	connectionTimeout time.Duration,
	rpcCallTimeout time.Duration,
) (*EVMClient, error) {
	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		rpcClient, err := rpc.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return NewEVMClientFromRPC(rpcClient, netDef, prices, logger, rpcCallTimeout), nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
		logger.Warn("RPC endpoint unavailable, trying next", "network", netDef.Identifier, "rpc", rpcURL, "error", err)
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// NewEVMClientFromRPC wraps an already dialed RPC client.
func NewEVMClientFromRPC(
	rpcClient *rpc.Client,
	netDef entity.NetworkDefinition,
	prices port.PriceService,
	logger port.Logger,
	rpcCallTimeout time.Duration,
) *EVMClient {
	initParsedERC20ABI()
	if rpcCallTimeout <= 0 {
		rpcCallTimeout = 10 * time.Second
	}
	return &EVMClient{
		backend:        ethclient.NewClient(rpcClient),
		raw:            rpcClient,
		netDef:         netDef,
		prices:         prices,
		logger:         logger,
		rpcCallTimeout: rpcCallTimeout,
	}
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

func (c *EVMClient) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.rpcCallTimeout)
}

func unavailable(op string, err error) error {
	return entity.NewError(entity.KindUpstreamUnavailable, op, err)
}

// ValidateAddress reports whether address is a 0x-prefixed 20-byte hex string.
func (c *EVMClient) ValidateAddress(address string) bool {
	return entity.IsAddress(address)
}

// FormatAddress returns the EIP-55 checksummed form of address.
func (c *EVMClient) FormatAddress(address string) (string, error) {
	if !entity.IsAddress(address) {
		return "", entity.InvalidInput("formatted address", "invalid address %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// GetNativeBalance returns the native balance of address as a decimal string.
func (c *EVMClient) GetNativeBalance(ctx context.Context, address string) (string, error) {
	if !entity.IsAddress(address) {
		return "", entity.InvalidInput("native balance", "invalid address %q", address)
	}
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	wei, err := c.backend.BalanceAt(callCtx, common.HexToAddress(address), nil)
	if err != nil {
		return "", unavailable("native balance", err)
	}
	return utils.FormatBigInt(wei, c.netDef.NativeDecimals()), nil
}

// GetTokenBalance reads balanceOf for entry and values it with the configured price service.
func (c *EVMClient) GetTokenBalance(ctx context.Context, wallet string, entry entity.TokenInfo) (*entity.TokenBalance, error) {
	if !entity.IsAddress(wallet) {
		return nil, entity.InvalidInput("token balance", "invalid wallet address %q", wallet)
	}
	if !entity.IsAddress(entry.Address) {
		return nil, entity.InvalidInput("token balance", "invalid contract address %q", entry.Address)
	}

	out, err := c.call(ctx, entry.Address, "balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance for %s: %w", entry.Symbol, err)
	}
	unpacked, err := parsedERC20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result for %s: %w", entry.Symbol, err)
	}
	raw, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T for %s", unpacked[0], entry.Symbol)
	}

	decimals := int32(entry.Decimals)
	var price float64
	if c.prices != nil {
		price = c.prices.GetPriceUSD(ctx, c.netDef, entry.Address)
	}

	return &entity.TokenBalance{
		ContractAddress: entry.Address,
		Symbol:          entry.Symbol,
		Name:            entry.Name,
		Decimals:        entry.Decimals,
		Balance:         utils.FormatBigInt(raw, decimals),
		BalanceRaw:      raw,
		Price:           price,
		ValueUSD:        utils.CalculateValueUSD(raw, decimals, price),
		Network:         c.netDef.Identifier,
	}, nil
}

// GetTokenMetadata reads symbol, name and decimals from an ERC-20 contract.
func (c *EVMClient) GetTokenMetadata(ctx context.Context, contract string) (*entity.TokenMetadata, error) {
	if !entity.IsAddress(contract) {
		return nil, entity.InvalidInput("token metadata", "invalid contract address %q", contract)
	}
	meta := &entity.TokenMetadata{Address: common.HexToAddress(contract).Hex()}

	for _, method := range []string{"symbol", "name", "decimals"} {
		out, err := c.call(ctx, contract, method)
		if err != nil {
			return nil, fmt.Errorf("failed to get token %s: %w", method, err)
		}
		values, err := parsedERC20ABI.Unpack(method, out)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
		}
		switch v := values[0].(type) {
		case string:
			if method == "symbol" {
				meta.Symbol = v
			} else {
				meta.Name = v
			}
		case uint8:
			meta.Decimals = v
		}
	}
	return meta, nil
}

func (c *EVMClient) call(ctx context.Context, contract, method string, args ...interface{}) ([]byte, error) {
	data, err := parsedERC20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	to := common.HexToAddress(contract)

	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	out, err := c.backend.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, unavailable(method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s response from %s, no contract code", method, contract)
	}
	return out, nil
}

// GetTransactionReceipt returns the receipt of hash, or nil when it is not mined yet.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error) {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	receipt, err := c.backend.TransactionReceipt(callCtx, common.HexToHash(hash))
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("transaction receipt", err)
	}
	return receipt, nil
}

// GetBlockNumber returns the latest block number.
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	n, err := c.backend.BlockNumber(callCtx)
	if err != nil {
		return 0, unavailable("block number", err)
	}
	return n, nil
}

// GetGasPrice returns the suggested gas price in wei, or zero when unavailable.
func (c *EVMClient) GetGasPrice(ctx context.Context) *big.Int {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	price, err := c.backend.SuggestGasPrice(callCtx)
	if err != nil || price == nil {
		c.logger.Warn("Gas price unavailable, using zero", "network", c.netDef.Identifier, "error", err)
		return big.NewInt(0)
	}
	return price
}

// EstimateGas estimates the gas a call would use.
func (c *EVMClient) EstimateGas(ctx context.Context, req entity.GasEstimateRequest) (uint64, error) {
	if !entity.IsAddress(req.From) {
		return 0, entity.InvalidInput("gas estimate", "invalid from address %q", req.From)
	}
	msg := ethereum.CallMsg{From: common.HexToAddress(req.From), Value: req.Value, Data: req.Data}
	if req.To != "" {
		if !entity.IsAddress(req.To) {
			return 0, entity.InvalidInput("gas estimate", "invalid to address %q", req.To)
		}
		to := common.HexToAddress(req.To)
		msg.To = &to
	}

	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	gas, err := c.backend.EstimateGas(callCtx, msg)
	if err != nil {
		return 0, entity.NewError(entity.KindUpstreamError, "gas estimate", err)
	}
	return gas, nil
}

// GetTransactionConfirmations returns head - receiptBlock + 1, or 0 without a receipt.
func (c *EVMClient) GetTransactionConfirmations(ctx context.Context, hash string) (uint64, error) {
	receipt, err := c.GetTransactionReceipt(ctx, hash)
	if err != nil || receipt == nil || receipt.BlockNumber == nil {
		return 0, err
	}
	head, err := c.GetBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return Confirmations(head, receipt.BlockNumber.Uint64()), nil
}

// GetTransactionStatus derives the status from the receipt; pending when none exists yet.
func (c *EVMClient) GetTransactionStatus(ctx context.Context, hash string) (entity.TxStatus, error) {
	receipt, err := c.GetTransactionReceipt(ctx, hash)
	if err != nil {
		return "", err
	}
	return ReceiptStatus(receipt), nil
}

// ReceiptStatus maps a receipt onto a transaction status.
func ReceiptStatus(receipt *types.Receipt) entity.TxStatus {
	switch {
	case receipt == nil:
		return entity.TxStatusPending
	case receipt.Status == types.ReceiptStatusSuccessful:
		return entity.TxStatusConfirmed
	default:
		return entity.TxStatusFailed
	}
}

// Confirmations counts the blocks from block up to and including head.
func Confirmations(head, block uint64) uint64 {
	if block > head {
		return 0
	}
	return head - block + 1
}

type rpcBlock struct {
	Number       hexutil.Uint64   `json:"number"`
	Timestamp    hexutil.Uint64   `json:"timestamp"`
	Transactions []rpcTransaction `json:"transactions"`
}

type rpcTransaction struct {
	Hash     common.Hash     `json:"hash"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to"`
	Value    *hexutil.Big    `json:"value"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
}

// GetBlockWithTransactions fetches a block with full transaction objects. The node reports
// the sender of each transaction, so chain-specific transaction types need no local decoding.
func (c *EVMClient) GetBlockWithTransactions(ctx context.Context, number uint64) (*entity.RawBlock, error) {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	var blk *rpcBlock
	if err := c.raw.CallContext(callCtx, &blk, "eth_getBlockByNumber", hexutil.EncodeUint64(number), true); err != nil {
		return nil, unavailable("block", err)
	}
	if blk == nil {
		return nil, entity.NotFound("block", "block %d not found", number)
	}

	out := &entity.RawBlock{
		Number:       uint64(blk.Number),
		Timestamp:    uint64(blk.Timestamp),
		Transactions: make([]entity.RawTransaction, 0, len(blk.Transactions)),
	}
	for _, tx := range blk.Transactions {
		rt := entity.RawTransaction{
			Hash:     tx.Hash.Hex(),
			From:     tx.From.Hex(),
			Value:    (*big.Int)(tx.Value),
			GasPrice: (*big.Int)(tx.GasPrice),
		}
		if tx.To != nil {
			rt.To = tx.To.Hex()
		}
		if rt.Value == nil {
			rt.Value = new(big.Int)
		}
		out.Transactions = append(out.Transactions, rt)
	}
	return out, nil
}
