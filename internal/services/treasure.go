package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"dragon-treasure/internal/genlayer"
	"dragon-treasure/internal/models"
)

type ClaimErrorKind string

const (
	ClaimMajorityDisagree  ClaimErrorKind = "majority_disagree"
	ClaimUndetermined      ClaimErrorKind = "undetermined"
	ClaimContractAPI       ClaimErrorKind = "contract_api"
	ClaimContractExecution ClaimErrorKind = "contract_execution"
	ClaimResultExtraction  ClaimErrorKind = "result_extraction"
)

var (
	ErrMajorityDisagree  = errors.New("validators could not agree")
	ErrUndetermined      = errors.New("transaction result undetermined")
	ErrContractAPI       = errors.New("contract api compatibility error")
	ErrContractExecution = errors.New("contract execution failed")
	ErrResultExtraction  = errors.New("could not extract game result")
)

const (
	msgMajorityDisagree = "The validators couldn't reach consensus on the dragon's decision. This usually means the contract needs to be redeployed with the latest code. Click the settings icon, copy the updated contract, redeploy it on GenLayer Studio, and enter the new address."
	msgUndetermined     = "The transaction result was undetermined. The validators couldn't finalize a decision. Please try again."
	msgContractAPI      = "The contract encountered an API compatibility error. The contract needs to be redeployed with updated code. Please copy the latest contract code from the setup page, redeploy it on GenLayer Studio, and enter the new contract address."
	msgExtraction       = "Could not extract game result from the transaction receipt. The transaction may have been processed but the result format was unexpected. Try redeploying the contract with the latest code."
)

// ClaimError is a classified claim failure. Error returns the message shown
// to the player.
type ClaimError struct {
	Kind    ClaimErrorKind
	Message string
}

func (e *ClaimError) Error() string {
	return e.Message
}

func (e *ClaimError) Unwrap() error {
	switch e.Kind {
	case ClaimMajorityDisagree:
		return ErrMajorityDisagree
	case ClaimUndetermined:
		return ErrUndetermined
	case ClaimContractAPI:
		return ErrContractAPI
	case ClaimContractExecution:
		return ErrContractExecution
	case ClaimResultExtraction:
		return ErrResultExtraction
	}
	return nil
}

// ReceiptWait controls how long a claim waits for finalization.
type ReceiptWait struct {
	Retries  int
	Interval time.Duration
}

var (
	DefaultReceiptWait = ReceiptWait{Retries: 120, Interval: 3 * time.Second}
	fullReceiptWait    = ReceiptWait{Retries: 1, Interval: time.Second}
)

type TreasureService struct {
	chain    ChainClient
	activity *ActivityLog
	wait     ReceiptWait
}

func NewTreasureService(chain ChainClient, activity *ActivityLog, wait ReceiptWait) *TreasureService {
	if wait.Retries < 1 {
		wait.Retries = DefaultReceiptWait.Retries
	}
	if wait.Interval <= 0 {
		wait.Interval = DefaultReceiptWait.Interval
	}
	return &TreasureService{
		chain:    chain,
		activity: activity,
		wait:     wait,
	}
}

// ClaimTreasure submits a plea and returns the dragon's decision. Consensus
// and contract failures come back as *ClaimError; transport failures are
// returned as the chain client reported them.
func (s *TreasureService) ClaimTreasure(ctx context.Context, contract, plea string) (result *models.GameResult, err error) {
	start := time.Now()
	defer func() {
		claimsTotal.WithLabelValues(claimOutcome(result, err)).Inc()
		claimDuration.Observe(time.Since(start).Seconds())
	}()

	s.activity.Record(models.LogLevelInfo, "writeContract claim_treasure()", fmt.Sprintf("plea: %q", models.Truncate(plea, 40)+"..."))
	s.activity.Record(models.LogLevelSystem, "Submitting transaction to GenLayer studionet...", "")

	hash, err := s.chain.WriteContract(ctx, genlayer.WriteParams{
		Address:    contract,
		Function:   "claim_treasure",
		Args:       []any{plea},
		Value:      new(big.Int),
		LeaderOnly: true,
	})
	if err != nil {
		s.activity.Record(models.LogLevelError, "Transaction failed", models.Truncate(err.Error(), 80))
		return nil, err
	}

	s.activity.Record(models.LogLevelSuccess, "Transaction submitted", "hash: "+models.ShortHex(hash, 18))
	s.activity.Record(models.LogLevelInfo, "Waiting for validator consensus...", "status: PENDING → PROPOSING")

	receipt, err := s.chain.WaitForTransactionReceipt(ctx, hash, genlayer.WaitOptions{
		Status:   genlayer.StatusFinalized,
		Retries:  s.wait.Retries,
		Interval: s.wait.Interval,
	})
	if err != nil {
		s.activity.Record(models.LogLevelError, "Failed to get transaction receipt", models.Truncate(err.Error(), 80))
		return nil, err
	}

	resultName, _ := receipt["result_name"].(string)
	if resultName == "" {
		resultName = "UNKNOWN"
	}
	s.activity.Record(models.LogLevelSystem, "Consensus reached: "+resultName, "status: FINALIZED")

	if err := s.classify(receipt); err != nil {
		return nil, err
	}

	s.activity.Record(models.LogLevelInfo, "Decoding transaction receipt...", "")
	if result, ok := s.extract(receipt); ok {
		return result, nil
	}

	s.activity.Record(models.LogLevelWarn, "Retrying with fullTransaction flag...", "")
	receiptRefetchesTotal.Inc()

	full, err := s.chain.WaitForTransactionReceipt(ctx, hash, genlayer.WaitOptions{
		Status:          genlayer.StatusFinalized,
		Retries:         fullReceiptWait.Retries,
		Interval:        fullReceiptWait.Interval,
		FullTransaction: true,
	})
	if err != nil {
		s.activity.Record(models.LogLevelError, "Failed to get transaction receipt", models.Truncate(err.Error(), 80))
		return nil, err
	}
	if result, ok := s.extract(full); ok {
		return result, nil
	}

	s.activity.Record(models.LogLevelError, "Failed to extract result from receipt", "")
	return nil, &ClaimError{Kind: ClaimResultExtraction, Message: msgExtraction}
}

// classify turns a finalized receipt carrying a consensus or contract
// failure into a *ClaimError.
func (s *TreasureService) classify(receipt genlayer.Receipt) error {
	resultName, _ := receipt["result_name"].(string)

	if resultName == genlayer.ResultMajorityDisagree || isResultCode(receipt["result"], genlayer.ResultCodeMajorityDisagree) {
		s.activity.Record(models.LogLevelError, "MAJORITY_DISAGREE", "Validators could not agree on result")
		return &ClaimError{Kind: ClaimMajorityDisagree, Message: msgMajorityDisagree}
	}
	if resultName == genlayer.ResultUndetermined {
		s.activity.Record(models.LogLevelError, "UNDETERMINED", "Transaction result could not be finalized")
		return &ClaimError{Kind: ClaimUndetermined, Message: msgUndetermined}
	}

	detail, found := FindError(receipt)
	if !found {
		return nil
	}
	s.activity.Record(models.LogLevelError, "Contract execution error", models.Truncate(detail, 80))

	if strings.Contains(detail, "AttributeError") || strings.Contains(detail, "Traceback") {
		return &ClaimError{Kind: ClaimContractAPI, Message: msgContractAPI}
	}
	return &ClaimError{
		Kind:    ClaimContractExecution,
		Message: fmt.Sprintf("The contract execution failed: %s. Try redeploying the contract with the latest code.", models.Truncate(detail, 200)),
	}
}

func (s *TreasureService) extract(receipt genlayer.Receipt) (*models.GameResult, bool) {
	candidate, ok := FindResult(receipt)
	if !ok {
		return nil, false
	}
	result, err := parseGameResult(candidate)
	if err != nil {
		return nil, false
	}

	if result.Success {
		s.activity.Record(models.LogLevelSuccess, "Dragon decided: GRANTED", fmt.Sprintf("+%d treasure", result.Amount))
	} else {
		s.activity.Record(models.LogLevelSuccess, "Dragon decided: DENIED", models.Truncate(result.Message, 50))
	}
	return result, true
}

// parseGameResult decodes a result candidate. Amount is coerced the same way
// stats are and otherwise passed through as the contract reported it.
func parseGameResult(candidate string) (*models.GameResult, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid game result: %w", err)
	}
	success, ok := raw["success"].(bool)
	if !ok {
		return nil, fmt.Errorf("invalid game result: success is not a boolean")
	}

	result := &models.GameResult{Success: success}
	result.Message, _ = raw["message"].(string)
	result.Reasoning, _ = raw["reasoning"].(string)
	if amount, ok := raw["amount"]; ok && amount != nil {
		n, ok := toInt64(amount)
		if !ok {
			return nil, fmt.Errorf("invalid game result: amount %v is not an integer", amount)
		}
		result.Amount = n
	}
	return result, nil
}

func isResultCode(v any, code int64) bool {
	n, ok := toInt64(v)
	return ok && n == code
}

func claimOutcome(result *models.GameResult, err error) string {
	var claimErr *ClaimError
	switch {
	case err == nil && result != nil && result.Success:
		return "granted"
	case err == nil:
		return "denied"
	case errors.As(err, &claimErr):
		return string(claimErr.Kind)
	case errors.Is(err, genlayer.ErrReceiptTimeout):
		return "timeout"
	}
	return "transport"
}

// ReadGameStats reads get_stats. The contract returns a JSON string, which
// some deployments wrap in base64; nodes that decode the value themselves
// return a map.
func (s *TreasureService) ReadGameStats(ctx context.Context, contract string) (*models.GameStats, error) {
	s.activity.Record(models.LogLevelInfo, "gen_call get_stats()", "contract "+models.ShortHex(contract, 10))

	raw, err := s.chain.ReadContract(ctx, genlayer.ReadParams{Address: contract, Function: "get_stats"})
	if err != nil {
		detail := models.Truncate(err.Error(), 80)
		if detail == "" {
			detail = "Unknown error"
		}
		s.activity.Record(models.LogLevelError, "Failed to read stats", detail)
		statsReadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	switch v := raw.(type) {
	case string:
		if stats, err := statsFromJSON(v); err == nil {
			s.activity.Record(models.LogLevelSuccess, "Stats received", statsDetail(stats))
			statsReadsTotal.WithLabelValues("ok").Inc()
			return stats, nil
		}
		if decoded, ok := decodeBase64JSON(v, func(c string) bool { return json.Valid([]byte(c)) }); ok {
			if stats, err := statsFromJSON(decoded); err == nil {
				s.activity.Record(models.LogLevelSuccess, "Stats decoded (base64)", statsDetail(stats))
				statsReadsTotal.WithLabelValues("ok").Inc()
				return stats, nil
			}
		}
	case map[string]any:
		if stats, err := statsFromMap(v); err == nil {
			s.activity.Record(models.LogLevelSuccess, "Stats received", "")
			statsReadsTotal.WithLabelValues("ok").Inc()
			return stats, nil
		}
	}

	err = fmt.Errorf("unexpected get_stats result of type %T", raw)
	s.activity.Record(models.LogLevelError, "Failed to read stats", models.Truncate(err.Error(), 80))
	statsReadsTotal.WithLabelValues("error").Inc()
	return nil, err
}

func (s *TreasureService) ReadTreasureCount(ctx context.Context, contract string) (int64, error) {
	raw, err := s.chain.ReadContract(ctx, genlayer.ReadParams{Address: contract, Function: "get_treasure_count"})
	if err != nil {
		return 0, err
	}
	count, ok := toInt64(raw)
	if !ok {
		return 0, fmt.Errorf("unexpected get_treasure_count result %v", raw)
	}
	return count, nil
}

func statsDetail(stats *models.GameStats) string {
	return fmt.Sprintf("%d treasure, %d attempts", stats.TreasureRemaining, stats.TotalAttempts)
}

func statsFromJSON(s string) (*models.GameStats, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return statsFromMap(m)
}

func statsFromMap(m map[string]any) (*models.GameStats, error) {
	var stats models.GameStats
	fields := []struct {
		key string
		dst *int64
	}{
		{"treasure_remaining", &stats.TreasureRemaining},
		{"total_attempts", &stats.TotalAttempts},
		{"successful_claims", &stats.SuccessfulClaims},
	}
	for _, f := range fields {
		v, ok := m[f.key]
		if !ok {
			continue
		}
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("invalid %s value %v", f.key, v)
		}
		*f.dst = n
	}
	return &stats, nil
}

// toInt64 coerces the numeric shapes a contract value can take, including
// numeric strings.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return toInt64(f)
	case *big.Int:
		if !n.IsInt64() {
			return 0, false
		}
		return n.Int64(), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}
