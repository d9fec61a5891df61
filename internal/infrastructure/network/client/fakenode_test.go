package client

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode is a minimal JSON-RPC node backed by maps.
type fakeNode struct {
	mu            sync.Mutex
	head          uint64
	balances      map[string]*big.Int
	tokenBalances map[string]map[string]*big.Int
	tokenMeta     map[string][3]any // symbol, name, decimals
	receipts      map[string]map[string]any
	blocks        map[uint64]map[string]any
	gasPrice      *big.Int
	calls         map[string]int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		balances:      map[string]*big.Int{},
		tokenBalances: map[string]map[string]*big.Int{},
		tokenMeta:     map[string][3]any{},
		receipts:      map[string]map[string]any{},
		blocks:        map[uint64]map[string]any{},
		calls:         map[string]int{},
	}
}

func (n *fakeNode) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n.mu.Lock()
		n.calls[req.Method]++
		result, rpcErr := n.handle(req)
		n.mu.Unlock()

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != "" {
			resp["error"] = map[string]any{"code": -32000, "message": rpcErr}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (n *fakeNode) handle(req rpcRequest) (any, string) {
	param := func(i int) string {
		var s string
		_ = json.Unmarshal(req.Params[i], &s)
		return strings.ToLower(s)
	}

	switch req.Method {
	case "eth_blockNumber":
		return hexutil.EncodeUint64(n.head), ""
	case "eth_getBalance":
		bal, ok := n.balances[param(0)]
		if !ok {
			bal = new(big.Int)
		}
		return hexutil.EncodeBig(bal), ""
	case "eth_gasPrice":
		if n.gasPrice == nil {
			return nil, "fee data unavailable"
		}
		return hexutil.EncodeBig(n.gasPrice), ""
	case "eth_estimateGas":
		return hexutil.EncodeUint64(21000), ""
	case "eth_getTransactionReceipt":
		if rcpt, ok := n.receipts[param(0)]; ok {
			return rcpt, ""
		}
		return nil, ""
	case "eth_getBlockByNumber":
		num, _ := hexutil.DecodeUint64(param(0))
		if blk, ok := n.blocks[num]; ok {
			return blk, ""
		}
		return nil, ""
	case "eth_call":
		return n.handleCall(req.Params[0])
	}
	return nil, "method not supported: " + req.Method
}

func (n *fakeNode) handleCall(raw json.RawMessage) (any, string) {
	var arg struct {
		To    string        `json:"to"`
		Data  hexutil.Bytes `json:"data"`
		Input hexutil.Bytes `json:"input"`
	}
	_ = json.Unmarshal(raw, &arg)
	data := arg.Input
	if len(data) == 0 {
		data = arg.Data
	}
	contract := strings.ToLower(arg.To)
	initParsedERC20ABI()

	method, err := parsedERC20ABI.MethodById(data[:4])
	if err != nil {
		return nil, "execution reverted"
	}

	switch method.Name {
	case "balanceOf":
		holders, ok := n.tokenBalances[contract]
		if !ok {
			return "0x", ""
		}
		args, _ := method.Inputs.Unpack(data[4:])
		wallet := strings.ToLower(args[0].(interface{ Hex() string }).Hex())
		amount, ok := holders[wallet]
		if !ok {
			amount = new(big.Int)
		}
		out, _ := method.Outputs.Pack(amount)
		return hexutil.Encode(out), ""
	case "symbol", "name", "decimals":
		meta, ok := n.tokenMeta[contract]
		if !ok {
			return "0x", ""
		}
		idx := map[string]int{"symbol": 0, "name": 1, "decimals": 2}[method.Name]
		out, _ := method.Outputs.Pack(meta[idx])
		return hexutil.Encode(out), ""
	}
	return nil, "execution reverted"
}

func receiptJSON(hash string, block, status uint64) map[string]any {
	return map[string]any{
		"type":              "0x2",
		"status":            hexutil.EncodeUint64(status),
		"cumulativeGasUsed": "0x5208",
		"logsBloom":         "0x" + strings.Repeat("00", 256),
		"logs":              []any{},
		"transactionHash":   hash,
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x3b9aca00",
		"blockHash":         "0x" + strings.Repeat("11", 32),
		"blockNumber":       hexutil.EncodeUint64(block),
		"transactionIndex":  "0x0",
	}
}
