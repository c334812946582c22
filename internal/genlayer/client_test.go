package genlayer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcHandler func(params []json.RawMessage) (any, *RPCError)

// fakeNode is a minimal JSON-RPC endpoint that dispatches on method name and
// records every call it receives.
type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    []string
}

func newFakeNode(t *testing.T, handlers map[string]rpcHandler) (*fakeNode, *httptest.Server) {
	t.Helper()
	node := &fakeNode{handlers: handlers}
	srv := httptest.NewServer(http.HandlerFunc(node.serve))
	t.Cleanup(srv.Close)
	return node, srv
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     uint64            `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls = append(n.calls, req.Method)
	handler, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = &RPCError{Code: -32601, Message: "method not found"}
	} else if result, rpcErr := handler(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, m := range n.calls {
		if m == method {
			total++
		}
	}
	return total
}

func testAccount(t *testing.T) *Account {
	t.Helper()
	account, err := ParsePrivateKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	return account
}

const testContract = "0x1111111111111111111111111111111111111111"

func TestReadContractDecodesCalldata(t *testing.T) {
	encoded, err := EncodeCalldata(map[string]any{"treasure_remaining": int64(900), "total_attempts": int64(3)})
	require.NoError(t, err)

	var seen map[string]any
	_, srv := newFakeNode(t, map[string]rpcHandler{
		"gen_call": func(params []json.RawMessage) (any, *RPCError) {
			_ = json.Unmarshal(params[0], &seen)
			return hexutil.Encode(encoded), nil
		},
	})

	client := NewClient(srv.URL, nil)
	value, err := client.ReadContract(context.Background(), ReadParams{Address: testContract, Function: "get_stats"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"treasure_remaining": int64(900), "total_attempts": int64(3)}, value)
	assert.Equal(t, "read", seen["type"])
	assert.Equal(t, testContract, seen["to"])
	assert.Equal(t, "latest-nonfinal", seen["transaction_hash_variant"])

	call, err := EncodeCalldata(MethodCall("get_stats", nil))
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex.EncodeToString(call), seen["data"])
}

func TestReadContractResultCodePrefix(t *testing.T) {
	encoded, err := EncodeCalldata("hello")
	require.NoError(t, err)

	_, srv := newFakeNode(t, map[string]rpcHandler{
		"gen_call": func([]json.RawMessage) (any, *RPCError) {
			return hexutil.Encode(append([]byte{0x00}, encoded...)), nil
		},
	})

	value, err := NewClient(srv.URL, nil).ReadContract(context.Background(), ReadParams{Address: testContract, Function: "get_stats"})
	require.NoError(t, err)
	assert.Equal(t, "hello", value)
}

func TestReadContractPassesThroughPlainValues(t *testing.T) {
	_, srv := newFakeNode(t, map[string]rpcHandler{
		"gen_call": func([]json.RawMessage) (any, *RPCError) {
			return map[string]any{"treasure_remaining": 10}, nil
		},
	})

	value, err := NewClient(srv.URL, nil).ReadContract(context.Background(), ReadParams{Address: testContract, Function: "get_stats"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"treasure_remaining": float64(10)}, value)
}

func TestReadContractRPCError(t *testing.T) {
	_, srv := newFakeNode(t, map[string]rpcHandler{
		"gen_call": func([]json.RawMessage) (any, *RPCError) {
			return nil, &RPCError{Code: -32000, Message: "contract not found"}
		},
	})

	_, err := NewClient(srv.URL, nil).ReadContract(context.Background(), ReadParams{Address: testContract, Function: "get_stats"})
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
	assert.Equal(t, "contract not found", rpcErr.Message)
}

func TestWriteContractSubmitsSignedTransaction(t *testing.T) {
	account := testAccount(t)

	var rawTx string
	node, srv := newFakeNode(t, map[string]rpcHandler{
		"eth_getTransactionCount": func(params []json.RawMessage) (any, *RPCError) {
			return "0x5", nil
		},
		"eth_sendRawTransaction": func(params []json.RawMessage) (any, *RPCError) {
			_ = json.Unmarshal(params[0], &rawTx)
			return "0xabc", nil
		},
	})

	client := NewClient(srv.URL, account, WithChainID(61999), WithGasLimit(5_000_000))
	hash, err := client.WriteContract(context.Background(), WriteParams{
		Address:  testContract,
		Function: "claim_treasure",
		Args:     []any{"please"},
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", hash)
	assert.Equal(t, 1, node.count("eth_getTransactionCount"))
	assert.Equal(t, 1, node.count("eth_sendRawTransaction"))

	raw, err := hexutil.Decode(rawTx)
	require.NoError(t, err)
	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(raw))
	assert.Equal(t, uint64(5), tx.Nonce())
	assert.Equal(t, uint64(5_000_000), tx.Gas())
	assert.Equal(t, testContract, tx.To().Hex())

	sender, err := types.Sender(types.NewEIP155Signer(tx.ChainId()), &tx)
	require.NoError(t, err)
	assert.Equal(t, account.Address, sender)

	var payload struct {
		Calldata   []byte
		LeaderOnly bool
	}
	require.NoError(t, rlp.DecodeBytes(tx.Data(), &payload))
	assert.False(t, payload.LeaderOnly)

	call, err := DecodeCalldata(payload.Calldata)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"method": "claim_treasure", "args": []any{"please"}}, call)
}

func TestWriteContractRequiresAccount(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:0", nil).WriteContract(context.Background(), WriteParams{
		Address:  testContract,
		Function: "claim_treasure",
	})
	assert.Error(t, err)
}

func receiptHandler(statuses ...any) rpcHandler {
	var mu sync.Mutex
	i := 0
	return func([]json.RawMessage) (any, *RPCError) {
		mu.Lock()
		defer mu.Unlock()
		status := statuses[len(statuses)-1]
		if i < len(statuses) {
			status = statuses[i]
		}
		i++
		if status == nil {
			return nil, nil
		}
		return map[string]any{
			"hash":              "0xabc",
			"status":            status,
			"result":            6,
			"data":              map[string]any{"calldata": map[string]any{"readable": "x"}},
			"consensus_history": []any{"round"},
			"consensus_data":    map[string]any{"leader_receipt": []any{}},
		}, nil
	}
}

func TestWaitForTransactionReceiptPollsUntilFinalized(t *testing.T) {
	node, srv := newFakeNode(t, map[string]rpcHandler{
		"eth_getTransactionByHash": receiptHandler(nil, "PENDING", 5, 7),
	})

	receipt, err := NewClient(srv.URL, nil).WaitForTransactionReceipt(context.Background(), "0xabc", WaitOptions{
		Retries:  10,
		Interval: time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, node.count("eth_getTransactionByHash"))
	assert.Equal(t, StatusFinalized, receipt["status_name"])
	assert.Equal(t, ResultMajorityAgree, receipt["result_name"])
	assert.NotContains(t, receipt, "consensus_history")
	assert.NotContains(t, receipt, "data")
	assert.Contains(t, receipt, "consensus_data")
}

func TestWaitForTransactionReceiptFullTransaction(t *testing.T) {
	_, srv := newFakeNode(t, map[string]rpcHandler{
		"eth_getTransactionByHash": receiptHandler("FINALIZED"),
	})

	receipt, err := NewClient(srv.URL, nil).WaitForTransactionReceipt(context.Background(), "0xabc", WaitOptions{
		Retries:         1,
		Interval:        time.Millisecond,
		FullTransaction: true,
	})
	require.NoError(t, err)
	assert.Contains(t, receipt, "consensus_history")
	assert.Contains(t, receipt, "data")
}

func TestWaitForTransactionReceiptAcceptedSatisfiedByFinalized(t *testing.T) {
	_, srv := newFakeNode(t, map[string]rpcHandler{
		"eth_getTransactionByHash": receiptHandler("FINALIZED"),
	})

	_, err := NewClient(srv.URL, nil).WaitForTransactionReceipt(context.Background(), "0xabc", WaitOptions{
		Status:   StatusAccepted,
		Retries:  1,
		Interval: time.Millisecond,
	})
	assert.NoError(t, err)
}

func TestWaitForTransactionReceiptTimeout(t *testing.T) {
	node, srv := newFakeNode(t, map[string]rpcHandler{
		"eth_getTransactionByHash": receiptHandler("PENDING"),
	})

	_, err := NewClient(srv.URL, nil).WaitForTransactionReceipt(context.Background(), "0xabc", WaitOptions{
		Retries:  3,
		Interval: time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReceiptTimeout)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, StatusPending, timeout.LastStatus)
	assert.Equal(t, 3, timeout.Retries)
	assert.Equal(t, 3, node.count("eth_getTransactionByHash"))
}

func TestWaitForTransactionReceiptTransportError(t *testing.T) {
	node, srv := newFakeNode(t, map[string]rpcHandler{
		"eth_getTransactionByHash": func([]json.RawMessage) (any, *RPCError) {
			return nil, &RPCError{Code: -32603, Message: "internal error"}
		},
	})

	_, err := NewClient(srv.URL, nil).WaitForTransactionReceipt(context.Background(), "0xabc", WaitOptions{
		Retries:  5,
		Interval: time.Millisecond,
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReceiptTimeout)
	assert.Equal(t, 1, node.count("eth_getTransactionByHash"))
}

func TestWaitForTransactionReceiptHonoursContext(t *testing.T) {
	_, srv := newFakeNode(t, map[string]rpcHandler{
		"eth_getTransactionByHash": receiptHandler("PENDING"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, nil).WaitForTransactionReceipt(ctx, "0xabc", WaitOptions{
		Retries:  1000,
		Interval: time.Second,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusAndResultNames(t *testing.T) {
	assert.Equal(t, StatusFinalized, StatusName(float64(7)))
	assert.Equal(t, StatusFinalized, StatusName("7"))
	assert.Equal(t, StatusFinalized, StatusName("FINALIZED"))
	assert.Equal(t, StatusUndetermined, StatusName(json.Number("6")))
	assert.Equal(t, "99", StatusName(99))
	assert.Equal(t, "", StatusName(nil))

	assert.Equal(t, ResultMajorityDisagree, ResultName(ResultCodeMajorityDisagree))
	assert.Equal(t, ResultMajorityDisagree, ResultName("MAJORITY_DISAGREE"))
	assert.Equal(t, "", ResultName(nil))
}

func TestSimplifyReceiptDoesNotMutateInput(t *testing.T) {
	full := Receipt{"status": "FINALIZED", "data": "x", "consensus_history": []any{}}
	simple := SimplifyReceipt(full)

	assert.Equal(t, Receipt{"status": "FINALIZED"}, simple)
	assert.Len(t, full, 3)
}
