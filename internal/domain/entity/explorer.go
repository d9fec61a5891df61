package entity

import "fmt"

// ExplorerTx is a txlist or tokentx row from an Etherscan-compatible explorer.
// All numeric fields arrive as decimal strings.
type ExplorerTx struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Gas             string `json:"gas"`
	GasPrice        string `json:"gasPrice"`
	GasUsed         string `json:"gasUsed"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName,omitempty"`
	TokenSymbol     string `json:"tokenSymbol,omitempty"`
	TokenDecimal    string `json:"tokenDecimal,omitempty"`
	Confirmations   string `json:"confirmations"`
}

// ExplorerQuery selects a page of account history.
type ExplorerQuery struct {
	Address string
	Page    int
	Offset  int
	Sort    string
}

// ExplorerProxyTx is the eth_getTransactionByHash result relayed by the explorer proxy module.
type ExplorerProxyTx struct {
	Hash        string  `json:"hash"`
	BlockNumber *string `json:"blockNumber"`
	From        string  `json:"from"`
	To          *string `json:"to"`
	Value       string  `json:"value"`
	GasPrice    string  `json:"gasPrice"`
	Gas         string  `json:"gas"`
}

// ExplorerProxyReceipt is the subset of eth_getTransactionReceipt used for details.
type ExplorerProxyReceipt struct {
	Status      string `json:"status"`
	GasUsed     string `json:"gasUsed"`
	BlockNumber string `json:"blockNumber"`
}

// ExplorerErrorCategory groups explorer failures by cause.
type ExplorerErrorCategory string

const (
	ExplorerServer        ExplorerErrorCategory = "server"
	ExplorerInvalidKey    ExplorerErrorCategory = "invalid_key"
	ExplorerNetwork       ExplorerErrorCategory = "network"
	ExplorerDecode        ExplorerErrorCategory = "decode"
	ExplorerTimeout       ExplorerErrorCategory = "timeout"
	ExplorerRateLimited   ExplorerErrorCategory = "rate_limited"
	ExplorerRejected      ExplorerErrorCategory = "rejected"
	ExplorerClient        ExplorerErrorCategory = "client"
	ExplorerNotConfigured ExplorerErrorCategory = "not_configured"
)

// ExplorerError is a failed explorer call.
type ExplorerError struct {
	Category   ExplorerErrorCategory
	Network    string
	Action     string
	StatusCode int
	Message    string
	Err        error
}

func (e *ExplorerError) Error() string {
	msg := fmt.Sprintf("explorer %s %s: %s", e.Network, e.Action, e.Category)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExplorerError) Unwrap() error { return e.Err }

// Recognized reports whether the failure is a real upstream problem that callers must see:
// server errors, bad API keys, network failures, malformed JSON and timeouts.
func (e *ExplorerError) Recognized() bool {
	switch e.Category {
	case ExplorerServer, ExplorerInvalidKey, ExplorerNetwork, ExplorerDecode, ExplorerTimeout:
		return true
	}
	return false
}

// Kind maps the category onto the service error kinds.
func (e *ExplorerError) Kind() ErrorKind {
	switch e.Category {
	case ExplorerNetwork, ExplorerTimeout, ExplorerRateLimited:
		return KindUpstreamUnavailable
	case ExplorerNotConfigured:
		return KindInvalidInput
	}
	return KindUpstreamError
}
