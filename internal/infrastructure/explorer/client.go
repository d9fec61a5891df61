package explorer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MaxOffset is the largest page an Etherscan-compatible txlist call returns.
const MaxOffset = 10000

const noTransactionsFound = "No transactions found"

// Config configures the explorer client of one network.
type Config struct {
	Network   string
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
}

// Client is an Etherscan-compatible explorer API client.
type Client struct {
	client  *fasthttp.Client
	cfg     Config
	limiter *rate.Limiter
	logger  port.Logger
}

// NewClient creates an explorer client for cfg.Network.
func NewClient(cfg Config, logger port.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		client: &fasthttp.Client{
			Name:                "wallet_tracker",
			MaxIdleConnDuration: 30 * time.Second,
		},
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

type apiResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// TxList returns normal transactions of q.Address, newest first unless q.Sort says otherwise.
func (c *Client) TxList(ctx context.Context, q entity.ExplorerQuery) ([]entity.ExplorerTx, error) {
	return c.accountList(ctx, "txlist", q)
}

// TokenTxList returns ERC-20 transfer events of q.Address.
func (c *Client) TokenTxList(ctx context.Context, q entity.ExplorerQuery) ([]entity.ExplorerTx, error) {
	return c.accountList(ctx, "tokentx", q)
}

func (c *Client) accountList(ctx context.Context, action string, q entity.ExplorerQuery) ([]entity.ExplorerTx, error) {
	page, offset := q.Page, q.Offset
	if page < 1 {
		page = 1
	}
	if offset < 1 {
		offset = 50
	}
	if offset > MaxOffset {
		offset = MaxOffset
	}
	sort := q.Sort
	if sort == "" {
		sort = "desc"
	}

	resp, err := c.do(ctx, "account", action, map[string]string{
		"address":    q.Address,
		"startblock": "0",
		"endblock":   "99999999",
		"page":       strconv.Itoa(page),
		"offset":     strconv.Itoa(offset),
		"sort":       sort,
	})
	if err != nil {
		return nil, err
	}

	if resp.Status != "1" {
		if strings.EqualFold(resp.Message, noTransactionsFound) {
			return []entity.ExplorerTx{}, nil
		}
		return nil, c.statusError(action, resp)
	}

	var rows []entity.ExplorerTx
	if err := json.Unmarshal(resp.Result, &rows); err != nil {
		return nil, c.fail(action, entity.ExplorerDecode, 0, "unexpected result shape", err)
	}
	return rows, nil
}

// TransactionByHash relays eth_getTransactionByHash. It returns nil when the hash is unknown.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*entity.ExplorerProxyTx, error) {
	var tx *entity.ExplorerProxyTx
	if err := c.proxy(ctx, "eth_getTransactionByHash", map[string]string{"txhash": hash}, &tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// TransactionReceipt relays eth_getTransactionReceipt. It returns nil when not mined.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*entity.ExplorerProxyReceipt, error) {
	var receipt *entity.ExplorerProxyReceipt
	if err := c.proxy(ctx, "eth_getTransactionReceipt", map[string]string{"txhash": hash}, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// BlockNumber relays eth_blockNumber.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var head hexutil.Uint64
	if err := c.proxy(ctx, "eth_blockNumber", nil, &head); err != nil {
		return 0, err
	}
	return uint64(head), nil
}

// BlockTimestamp returns the timestamp, in seconds, of block number.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	var blk *struct {
		Timestamp hexutil.Uint64 `json:"timestamp"`
	}
	params := map[string]string{"tag": hexutil.EncodeUint64(number), "boolean": "false"}
	if err := c.proxy(ctx, "eth_getBlockByNumber", params, &blk); err != nil {
		return 0, err
	}
	if blk == nil {
		return 0, c.fail("eth_getBlockByNumber", entity.ExplorerRejected, 0, fmt.Sprintf("block %d not found", number), nil)
	}
	return uint64(blk.Timestamp), nil
}

func (c *Client) proxy(ctx context.Context, action string, params map[string]string, out any) error {
	resp, err := c.do(ctx, "proxy", action, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return c.fail(action, entity.ExplorerRejected, 0, resp.Error.Message, nil)
	}
	// Proxy failures come back in the account envelope with the reason in result.
	if resp.Status == "0" {
		return c.statusError(action, resp)
	}
	if len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		var reason string
		if json.Unmarshal(resp.Result, &reason) == nil {
			return c.statusError(action, apiResponse{Message: "NOTOK", Result: resp.Result})
		}
		return c.fail(action, entity.ExplorerDecode, 0, "unexpected result shape", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, module, action string, params map[string]string) (apiResponse, error) {
	var out apiResponse
	if !c.Configured() {
		return out, c.fail(action, entity.ExplorerNotConfigured, 0, "explorer API key is not set", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return out, c.fail(action, entity.ExplorerTimeout, 0, "rate limiter wait aborted", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	release := func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}

	req.SetRequestURI(c.cfg.BaseURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	args := req.URI().QueryArgs()
	args.Add("module", module)
	args.Add("action", action)
	for k, v := range params {
		args.Add(k, v)
	}
	args.Add("apikey", c.cfg.APIKey)

	c.logger.Debug("Explorer request", "network", c.cfg.Network, "module", module, "action", action)

	deadline := time.Now().Add(c.cfg.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	// DoDeadline only honours deadlines, so cancellation is watched alongside it.
	// req and resp go back to the pool once the call has returned.
	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- c.client.DoDeadline(req, resp, deadline) }()

	var err error
	select {
	case err = <-done:
		defer release()
	case <-ctx.Done():
		go func() {
			<-done
			release()
		}()
		metrics.ExplorerLatency.WithLabelValues(c.cfg.Network, action).Observe(time.Since(start).Seconds())
		return out, c.fail(action, entity.ExplorerTimeout, 0, "request cancelled", ctx.Err())
	}
	metrics.ExplorerLatency.WithLabelValues(c.cfg.Network, action).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) || ctx.Err() != nil {
			return out, c.fail(action, entity.ExplorerTimeout, 0, "", err)
		}
		return out, c.fail(action, entity.ExplorerNetwork, 0, "", err)
	}

	status := resp.StatusCode()
	switch {
	case status >= 500:
		return out, c.fail(action, entity.ExplorerServer, status, truncate(resp.Body()), nil)
	case status == fasthttp.StatusTooManyRequests:
		return out, c.fail(action, entity.ExplorerRateLimited, status, truncate(resp.Body()), nil)
	case status != fasthttp.StatusOK:
		return out, c.fail(action, entity.ExplorerClient, status, truncate(resp.Body()), nil)
	}

	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out, c.fail(action, entity.ExplorerDecode, status, "malformed JSON", err)
	}
	metrics.ExplorerRequests.WithLabelValues(c.cfg.Network, action, "ok").Inc()
	return out, nil
}

// statusError classifies a status "0" response by the reason the explorer put in result.
func (c *Client) statusError(action string, resp apiResponse) error {
	var reason string
	if err := json.Unmarshal(resp.Result, &reason); err != nil {
		reason = resp.Message
	}
	lower := strings.ToLower(reason)

	switch {
	case strings.Contains(lower, "invalid api key"), strings.Contains(lower, "missing/invalid api key"):
		return c.fail(action, entity.ExplorerInvalidKey, 0, reason, nil)
	case strings.Contains(lower, "rate limit"):
		return c.fail(action, entity.ExplorerRateLimited, 0, reason, nil)
	}
	return c.fail(action, entity.ExplorerRejected, 0, reason, nil)
}

func (c *Client) fail(action string, category entity.ExplorerErrorCategory, status int, msg string, err error) error {
	metrics.ExplorerRequests.WithLabelValues(c.cfg.Network, action, string(category)).Inc()
	c.logger.Warn("Explorer request failed",
		"network", c.cfg.Network, "action", action, "category", category, "status", status, "message", msg, "error", err)
	return &entity.ExplorerError{
		Category:   category,
		Network:    c.cfg.Network,
		Action:     action,
		StatusCode: status,
		Message:    msg,
		Err:        err,
	}
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// Registry maps network identifiers to explorer clients.
type Registry struct {
	clients map[string]*Client
}

// NewRegistry indexes clients by their network identifier.
func NewRegistry(clients ...*Client) *Registry {
	r := &Registry{clients: make(map[string]*Client, len(clients))}
	for _, c := range clients {
		r.clients[strings.ToLower(c.cfg.Network)] = c
	}
	return r
}

// Explorer implements port.ExplorerProvider.
func (r *Registry) Explorer(networkIdentifier string) (port.ExplorerClient, bool) {
	c, ok := r.clients[strings.ToLower(networkIdentifier)]
	if !ok {
		return nil, false
	}
	return c, true
}
