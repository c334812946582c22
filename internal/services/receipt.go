package services

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"
)

// maxSearchDepth bounds every receipt traversal.
const maxSearchDepth = 10

const defaultErrorDetail = "Contract execution failed"

// Receipt traversal visits map keys in ascending byte order and array
// elements in index order, so the first match is stable for a given input.

// FindError returns the first error signal in node: a string that is exactly
// "ERROR" or mentions AttributeError or Traceback, or the detail of an object
// whose status or execution_result is "ERROR".
func FindError(node any) (string, bool) {
	return findError(node, 0)
}

func findError(node any, depth int) (string, bool) {
	if depth > maxSearchDepth || node == nil {
		return "", false
	}

	switch v := node.(type) {
	case string:
		if isErrorSignal(v) {
			return v, true
		}
	case map[string]any:
		if v["execution_result"] == "ERROR" || v["status"] == "ERROR" {
			return errorDetail(v), true
		}
		for _, key := range sortedKeys(v) {
			if detail, ok := findErrorChild(v[key], depth); ok {
				return detail, true
			}
		}
	case []any:
		for _, item := range v {
			if detail, ok := findErrorChild(item, depth); ok {
				return detail, true
			}
		}
	}
	return "", false
}

// Direct string children are matched at the parent's depth.
func findErrorChild(child any, depth int) (string, bool) {
	if s, ok := child.(string); ok {
		if isErrorSignal(s) {
			return s, true
		}
		return "", false
	}
	return findError(child, depth+1)
}

func isErrorSignal(s string) bool {
	return s == "ERROR" || strings.Contains(s, "AttributeError") || strings.Contains(s, "Traceback")
}

func errorDetail(node map[string]any) string {
	for _, key := range []string{"error", "message", "error_message"} {
		val, ok := node[key]
		if !ok || isFalsy(val) {
			continue
		}
		if s, ok := val.(string); ok {
			return s
		}
		b, err := json.Marshal(val)
		if err != nil {
			continue
		}
		return string(b)
	}
	return defaultErrorDetail
}

func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	}
	return false
}

// DecodeCandidate returns s when it is a JSON object with a boolean success
// field. Otherwise s is treated as base64 and the JSON starting at the first
// '{' of the decoded text is returned if it qualifies.
func DecodeCandidate(s string) (string, bool) {
	if hasBoolSuccess(s) {
		return s, true
	}
	return decodeBase64JSON(s, hasBoolSuccess)
}

func decodeBase64JSON(s string, accept func(string) bool) (string, bool) {
	decoded, ok := decodeBase64(s)
	if !ok {
		return "", false
	}
	start := strings.IndexByte(decoded, '{')
	if start < 0 {
		return "", false
	}
	candidate := decoded[start:]
	if !accept(candidate) {
		return "", false
	}
	return candidate, true
}

// decodeBase64 accepts standard base64 with or without padding and ignores
// embedded whitespace.
func decodeBase64(s string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			return -1
		}
		return r
	}, s)
	cleaned = strings.TrimRight(cleaned, "=")
	if cleaned == "" {
		return "", false
	}
	b, err := base64.RawStdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func hasBoolSuccess(s string) bool {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return false
	}
	_, ok := obj["success"].(bool)
	return ok
}

// FindResult locates a game result JSON string in a receipt. The leader
// receipts are checked first, then data.calldata.readable, then every string
// in the receipt. A list root is only searched.
func FindResult(node any) (string, bool) {
	receipt, ok := node.(map[string]any)
	if !ok {
		if list, ok := node.([]any); ok {
			return searchResult(list, 0)
		}
		return "", false
	}

	for _, lr := range leaderReceipts(receipt) {
		if lr["execution_result"] == "SUCCESS" {
			if result, ok := lr["result"].(string); ok {
				if found, ok := DecodeCandidate(result); ok {
					return found, true
				}
			}
		}
		if outputs, ok := lr["eq_outputs"].(map[string]any); ok {
			for _, key := range sortedKeys(outputs) {
				if s, ok := outputs[key].(string); ok {
					if found, ok := DecodeCandidate(s); ok {
						return found, true
					}
				}
			}
		}
	}

	if readable, ok := lookupString(receipt, "data", "calldata", "readable"); ok && readable != "" {
		if found, ok := DecodeCandidate(readable); ok {
			return found, true
		}
	}

	return searchResult(receipt, 0)
}

func leaderReceipts(receipt map[string]any) []map[string]any {
	consensus, ok := receipt["consensus_data"].(map[string]any)
	if !ok {
		return nil
	}

	var list []any
	switch v := consensus["leader_receipt"].(type) {
	case []any:
		list = v
	case map[string]any:
		list = []any{v}
	default:
		return nil
	}

	receipts := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			receipts = append(receipts, m)
		}
	}
	return receipts
}

func searchResult(node any, depth int) (string, bool) {
	if depth > maxSearchDepth || node == nil {
		return "", false
	}

	switch v := node.(type) {
	case string:
		return DecodeCandidate(v)
	case map[string]any:
		for _, key := range sortedKeys(v) {
			if found, ok := searchResultChild(v[key], depth); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range v {
			if found, ok := searchResultChild(item, depth); ok {
				return found, true
			}
		}
	}
	return "", false
}

func searchResultChild(child any, depth int) (string, bool) {
	if s, ok := child.(string); ok {
		return DecodeCandidate(s)
	}
	return searchResult(child, depth+1)
}

func lookupString(node map[string]any, path ...string) (string, bool) {
	var cur any = node
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur = m[key]
	}
	s, ok := cur.(string)
	return s, ok
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
