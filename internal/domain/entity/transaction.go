package entity

import (
	"math/big"
	"strings"
)

// TxType is the direction of a transaction relative to a wallet.
type TxType string

const (
	TxTypeSend    TxType = "send"
	TxTypeReceive TxType = "receive"
)

// ParseTxType accepts "send" or "receive".
func ParseTxType(s string) (TxType, bool) {
	switch TxType(strings.ToLower(strings.TrimSpace(s))) {
	case TxTypeSend:
		return TxTypeSend, true
	case TxTypeReceive:
		return TxTypeReceive, true
	}
	return "", false
}

// TxStatus is the inclusion status of a transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// Transaction is the canonical transaction record shared by adapters and services.
type Transaction struct {
	Hash          string   `json:"hash"`
	From          string   `json:"from"`
	To            string   `json:"to"`
	Value         string   `json:"value"`
	TokenSymbol   string   `json:"tokenSymbol,omitempty"`
	Type          TxType   `json:"type"`
	Timestamp     int64    `json:"timestamp"`
	Status        TxStatus `json:"status"`
	Network       string   `json:"network"`
	GasUsed       string   `json:"gasUsed,omitempty"`
	GasPrice      string   `json:"gasPrice,omitempty"`
	BlockNumber   uint64   `json:"blockNumber"`
	Confirmations uint64   `json:"confirmations"`
}

// ClassifyDirection returns send when from matches the wallet (self-transfers included),
// receive when only to matches, and send otherwise.
func ClassifyDirection(from, to, wallet string) TxType {
	if strings.EqualFold(from, wallet) {
		return TxTypeSend
	}
	if to != "" && strings.EqualFold(to, wallet) {
		return TxTypeReceive
	}
	return TxTypeSend
}

// Pagination describes a page of results.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// TransactionPage is one page of a wallet's transaction history.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// GasEstimateRequest is the call a gas estimate is computed for.
type GasEstimateRequest struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Value *big.Int `json:"value,omitempty"`
	Data  []byte   `json:"data,omitempty"`
}

// RawBlock is a block with its transactions as reported by the node.
type RawBlock struct {
	Number       uint64
	Timestamp    uint64
	Transactions []RawTransaction
}

// RawTransaction is a transaction inside a RawBlock. To is empty for contract creation.
type RawTransaction struct {
	Hash     string
	From     string
	To       string
	Value    *big.Int
	GasPrice *big.Int
}
