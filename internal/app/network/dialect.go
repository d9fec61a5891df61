package network

import (
	"fmt"
	"strconv"
	"strings"

	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/pkg/utils"
)

// Dialect describes how one network's explorer rows are read.
type Dialect struct {
	// NativeSymbol labels native value transfers.
	NativeSymbol string
}

// Status reads isError first, then txreceipt_status. Explorers leave both empty
// for transactions that are not final yet.
func (d Dialect) Status(row entity.ExplorerTx) entity.TxStatus {
	switch row.IsError {
	case "0":
		return entity.TxStatusConfirmed
	case "1":
		return entity.TxStatusFailed
	}
	switch row.TxReceiptStatus {
	case "1":
		return entity.TxStatusConfirmed
	case "0":
		return entity.TxStatusFailed
	}
	return entity.TxStatusPending
}

// DialectFor returns the explorer dialect of a network.
func DialectFor(def entity.NetworkDefinition) Dialect {
	switch strings.ToLower(def.Identifier) {
	case "polygon":
		return Dialect{NativeSymbol: "POL"}
	default:
		return Dialect{NativeSymbol: def.NativeCurrency.Symbol}
	}
}

// MapRow converts a txlist row into a Transaction seen from wallet.
func (d Dialect) MapRow(row entity.ExplorerTx, def entity.NetworkDefinition, wallet string) (entity.Transaction, error) {
	value, err := utils.FormatUnits(row.Value, def.NativeDecimals())
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("tx %s: %w", row.Hash, err)
	}
	return entity.Transaction{
		Hash:          row.Hash,
		From:          row.From,
		To:            row.To,
		Value:         value,
		TokenSymbol:   d.NativeSymbol,
		Type:          entity.ClassifyDirection(row.From, row.To, wallet),
		Timestamp:     parseUint(row.TimeStamp) * 1000,
		Status:        d.Status(row),
		Network:       def.Identifier,
		GasUsed:       row.GasUsed,
		GasPrice:      row.GasPrice,
		BlockNumber:   uint64(parseUint(row.BlockNumber)),
		Confirmations: uint64(parseUint(row.Confirmations)),
	}, nil
}

// MapTokenRow converts a tokentx row. Transfer events only exist for successful calls.
func (d Dialect) MapTokenRow(row entity.ExplorerTx, def entity.NetworkDefinition, wallet string) (entity.Transaction, error) {
	decimals, err := strconv.ParseInt(row.TokenDecimal, 10, 32)
	if err != nil {
		decimals = 18
	}
	value, err := utils.FormatUnits(row.Value, int32(decimals))
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("token tx %s: %w", row.Hash, err)
	}
	return entity.Transaction{
		Hash:          row.Hash,
		From:          row.From,
		To:            row.To,
		Value:         value,
		TokenSymbol:   row.TokenSymbol,
		Type:          entity.ClassifyDirection(row.From, row.To, wallet),
		Timestamp:     parseUint(row.TimeStamp) * 1000,
		Status:        entity.TxStatusConfirmed,
		Network:       def.Identifier,
		GasUsed:       row.GasUsed,
		GasPrice:      row.GasPrice,
		BlockNumber:   uint64(parseUint(row.BlockNumber)),
		Confirmations: uint64(parseUint(row.Confirmations)),
	}, nil
}

func parseUint(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
