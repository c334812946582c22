package genlayer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// Receipt is a transaction as returned by the node. Its shape depends on the
// path the transaction took on-chain, so it is kept untyped.
type Receipt = map[string]any

const (
	defaultGasLimit = 30_000_000
	defaultChainID  = 61999 // studionet
	maxResponseSize = 16 << 20
)

type ReadParams struct {
	Address  string
	Function string
	Args     []any
}

type WriteParams struct {
	Address    string
	Function   string
	Args       []any
	Value      *big.Int
	LeaderOnly bool
}

type WaitOptions struct {
	Status          string
	Retries         int
	Interval        time.Duration
	FullTransaction bool
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	account    *Account
	chainID    *big.Int
	gasLimit   uint64
	requestID  atomic.Uint64
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithChainID(chainID int64) Option {
	return func(c *Client) {
		c.chainID = big.NewInt(chainID)
	}
}

func WithGasLimit(gas uint64) Option {
	return func(c *Client) {
		c.gasLimit = gas
	}
}

// NewClient creates a client for the JSON-RPC endpoint. account may be nil
// for a read-only client.
func NewClient(endpoint string, account *Account, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		account:    account,
		chainID:    big.NewInt(defaultChainID),
		gasLimit:   defaultGasLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      any             `json:"id"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.requestID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("%s: http status %d: invalid response body: %w", method, resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%s: failed to decode result: %w", method, err)
	}
	return nil
}

// ReadContract performs a read-only gen_call and decodes the returned value.
func (c *Client) ReadContract(ctx context.Context, p ReadParams) (any, error) {
	calldata, err := EncodeCalldata(MethodCall(p.Function, p.Args))
	if err != nil {
		return nil, err
	}

	from := common.Address{}
	if c.account != nil {
		from = c.account.Address
	}

	request := map[string]any{
		"type":                     "read",
		"to":                       p.Address,
		"from":                     from.Hex(),
		"data":                     hexutil.Encode(calldata),
		"transaction_hash_variant": "latest-nonfinal",
	}

	var raw json.RawMessage
	if err := c.call(ctx, "gen_call", []any{request}, &raw); err != nil {
		return nil, err
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		// Some nodes return the value already decoded.
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("gen_call: failed to decode result: %w", err)
		}
		return value, nil
	}

	return decodeReadResult(encoded), nil
}

// decodeReadResult turns a hex calldata result into a value. Anything that
// is not decodable calldata is returned as the original string.
func decodeReadResult(encoded string) any {
	b, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
	if err != nil || len(b) == 0 {
		return encoded
	}
	if v, err := DecodeCalldata(b); err == nil {
		return v
	}
	// A leading zero byte is the "return" result code.
	if b[0] == 0 {
		if v, err := DecodeCalldata(b[1:]); err == nil {
			return v
		}
	}
	return encoded
}

// WriteContract signs and submits a state-changing call and returns the
// transaction hash.
func (c *Client) WriteContract(ctx context.Context, p WriteParams) (string, error) {
	if c.account == nil {
		return "", fmt.Errorf("write %s: client has no account", p.Function)
	}
	if !common.IsHexAddress(p.Address) {
		return "", fmt.Errorf("write %s: invalid contract address %q", p.Function, p.Address)
	}

	calldata, err := EncodeCalldata(MethodCall(p.Function, p.Args))
	if err != nil {
		return "", err
	}
	payload, err := rlp.EncodeToBytes([]any{calldata, p.LeaderOnly})
	if err != nil {
		return "", fmt.Errorf("write %s: failed to encode payload: %w", p.Function, err)
	}

	var nonceRaw json.RawMessage
	if err := c.call(ctx, "eth_getTransactionCount", []any{c.account.Address.Hex(), "latest"}, &nonceRaw); err != nil {
		return "", err
	}
	nonce, err := parseQuantity(nonceRaw)
	if err != nil {
		return "", fmt.Errorf("eth_getTransactionCount: %w", err)
	}

	value := p.Value
	if value == nil {
		value = new(big.Int)
	}
	to := common.HexToAddress(p.Address)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      c.gasLimit,
		GasPrice: new(big.Int),
		Data:     payload,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.account.key)
	if err != nil {
		return "", fmt.Errorf("write %s: failed to sign transaction: %w", p.Function, err)
	}
	rawTx, err := signed.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("write %s: failed to serialize transaction: %w", p.Function, err)
	}

	var hash string
	if err := c.call(ctx, "eth_sendRawTransaction", []any{hexutil.Encode(rawTx)}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func parseQuantity(raw json.RawMessage) (uint64, error) {
	var q hexutil.Uint64
	if err := json.Unmarshal(raw, &q); err == nil {
		return uint64(q), nil
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("invalid quantity %s", string(raw))
	}
	return n, nil
}

// GetTransaction fetches the transaction by hash. A nil receipt with a nil
// error means the node does not know the transaction yet.
func (c *Client) GetTransaction(ctx context.Context, hash string) (Receipt, error) {
	var receipt Receipt
	if err := c.call(ctx, "eth_getTransactionByHash", []any{hash}, &receipt); err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}

	if status, ok := receipt["status"]; ok {
		receipt["status_name"] = StatusName(status)
	}
	if _, ok := receipt["result_name"]; !ok {
		if name := ResultName(receipt["result"]); name != "" {
			receipt["result_name"] = name
		}
	}
	return receipt, nil
}

// WaitForTransactionReceipt polls until the transaction reaches opts.Status.
// Transport errors end the wait immediately; running out of retries returns a
// *TimeoutError.
func (c *Client) WaitForTransactionReceipt(ctx context.Context, hash string, opts WaitOptions) (Receipt, error) {
	if opts.Status == "" {
		opts.Status = StatusFinalized
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}

	var lastStatus string
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		receipt, err := c.GetTransaction(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			lastStatus = StatusName(receipt["status"])
			if reachedStatus(lastStatus, opts.Status) {
				if opts.FullTransaction {
					return receipt, nil
				}
				return SimplifyReceipt(receipt), nil
			}
		}

		if attempt == opts.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Interval):
		}
	}

	return nil, &TimeoutError{
		Hash:       hash,
		Status:     opts.Status,
		LastStatus: lastStatus,
		Retries:    opts.Retries,
		Interval:   opts.Interval,
	}
}

// SimplifyReceipt returns the lightweight view of a receipt: the bulky
// consensus history and raw transaction data are left out.
func SimplifyReceipt(receipt Receipt) Receipt {
	simple := make(Receipt, len(receipt))
	for k, v := range receipt {
		switch k {
		case "consensus_history", "data":
			continue
		}
		simple[k] = v
	}
	return simple
}
