package genlayer

import (
	"errors"
	"fmt"
	"time"
)

var ErrReceiptTimeout = errors.New("transaction receipt not ready")

// RPCError is a JSON-RPC error envelope returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TimeoutError is returned when a transaction did not reach the wanted
// status within the allowed number of polls.
type TimeoutError struct {
	Hash       string
	Status     string
	LastStatus string
	Retries    int
	Interval   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transaction %s did not reach %s after %d attempts every %s (last status %q)",
		e.Hash, e.Status, e.Retries, e.Interval, e.LastStatus)
}

func (e *TimeoutError) Unwrap() error {
	return ErrReceiptTimeout
}
