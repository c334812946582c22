package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"dragon-treasure/internal/models"
)

const (
	maxRelayBody      = 1 << 20
	maxRelayResponse  = 16 << 20
	rpcInternalError  = -32603
	rpcParseError     = -32700
	relayErrorLogSize = 300
	relayBatchMethod  = "batch"
)

// RelayHandler forwards JSON-RPC envelopes to the GenLayer node unchanged.
type RelayHandler struct {
	upstream   string
	httpClient *http.Client
}

func NewRelayHandler(upstream string, timeout time.Duration) *RelayHandler {
	return &RelayHandler{
		upstream:   upstream,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (h *RelayHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type rpcEnvelope struct {
	Method string          `json:"method"`
	ID     any             `json:"id"`
	Error  json.RawMessage `json:"error"`
}

// Forward relays one JSON-RPC request or batch. Only single requests have
// their method and id read; batches are passed through as they are.
func (h *RelayHandler) Forward(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRelayBody))
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, rpcErrorBody(rpcParseError, "Parse error", nil))
		return
	}

	method := relayBatchMethod
	var req rpcEnvelope
	if isJSONObject(body) {
		if err := json.Unmarshal(body, &req); err == nil {
			method = req.Method
		}
	}

	start := time.Now()
	data, err := h.post(c, body)
	relayDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		log.WithError(err).WithField("method", method).Error("GenLayer RPC proxy error")
		relayRequestsTotal.WithLabelValues(method, "unreachable").Inc()
		c.JSON(http.StatusBadGateway, rpcErrorBody(rpcInternalError, "Failed to reach GenLayer RPC: "+err.Error(), req.ID))
		return
	}

	if !json.Valid(data) {
		relayRequestsTotal.WithLabelValues(method, "invalid").Inc()
		c.JSON(http.StatusBadGateway, rpcErrorBody(rpcInternalError, "Failed to reach GenLayer RPC: invalid JSON in upstream response", req.ID))
		return
	}

	status := "ok"
	if rpcErr := upstreamError(data); rpcErr != "" {
		status = "rpc_error"
		log.WithFields(log.Fields{
			"method": method,
			"error":  models.Truncate(rpcErr, relayErrorLogSize),
		}).Warn("GenLayer RPC error")
	}
	relayRequestsTotal.WithLabelValues(method, status).Inc()

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func isJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// upstreamError returns the raw error member of an object response, or of
// the first failed call in a batch response.
func upstreamError(data []byte) string {
	var responses []rpcEnvelope
	if isJSONObject(data) {
		var resp rpcEnvelope
		if err := json.Unmarshal(data, &resp); err != nil {
			return ""
		}
		responses = append(responses, resp)
	} else if err := json.Unmarshal(data, &responses); err != nil {
		return ""
	}

	for _, resp := range responses {
		if len(resp.Error) > 0 && string(resp.Error) != "null" {
			return string(resp.Error)
		}
	}
	return ""
}

func (h *RelayHandler) post(c *gin.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, h.upstream, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayResponse))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// rpcErrorBody builds a JSON-RPC error response. A missing, zero or empty id
// is reported as null.
func rpcErrorBody(code int, message string, id any) gin.H {
	switch v := id.(type) {
	case string:
		if v == "" {
			id = nil
		}
	case float64:
		if v == 0 {
			id = nil
		}
	case bool:
		if !v {
			id = nil
		}
	}
	return gin.H{
		"jsonrpc": "2.0",
		"error":   gin.H{"code": code, "message": message},
		"id":      id,
	}
}
