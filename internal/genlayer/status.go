package genlayer

import (
	"encoding/json"
	"strconv"
)

// Transaction statuses as reported by the studio node.
const (
	StatusPending      = "PENDING"
	StatusProposing    = "PROPOSING"
	StatusAccepted     = "ACCEPTED"
	StatusUndetermined = "UNDETERMINED"
	StatusFinalized    = "FINALIZED"
)

// Consensus result names.
const (
	ResultMajorityAgree    = "MAJORITY_AGREE"
	ResultMajorityDisagree = "MAJORITY_DISAGREE"
	ResultUndetermined     = "UNDETERMINED"

	// ResultCodeMajorityDisagree is the numeric form some nodes return in
	// place of the name.
	ResultCodeMajorityDisagree = 7
)

var statusNames = map[int64]string{
	0:  "UNINITIALIZED",
	1:  StatusPending,
	2:  StatusProposing,
	3:  "COMMITTING",
	4:  "REVEALING",
	5:  StatusAccepted,
	6:  StatusUndetermined,
	7:  StatusFinalized,
	8:  "CANCELED",
	9:  "APPEAL_REVEALING",
	10: "APPEAL_COMMITTING",
	11: "READY_TO_FINALIZE",
	12: "VALIDATORS_TIMEOUT",
	13: "LEADER_TIMEOUT",
}

var resultNames = map[int64]string{
	0: "IDLE",
	1: "AGREE",
	2: "DISAGREE",
	3: "TIMEOUT",
	4: "DETERMINISTIC_VIOLATION",
	5: "NO_MAJORITY",
	6: ResultMajorityAgree,
	7: ResultMajorityDisagree,
}

// StatusName maps a status value, which may be a name or a numeric code, to
// its name. Unknown values are returned as their string form.
func StatusName(v any) string {
	return lookupName(v, statusNames)
}

func ResultName(v any) string {
	return lookupName(v, resultNames)
}

func lookupName(v any, names map[int64]string) string {
	var code int64
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return val
		}
		code = n
	case float64:
		code = int64(val)
	case int:
		code = int64(val)
	case int64:
		code = val
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return val.String()
		}
		code = n
	default:
		return ""
	}

	if name, ok := names[code]; ok {
		return name
	}
	return strconv.FormatInt(code, 10)
}

// reachedStatus reports whether current satisfies the wanted status.
// A finalized transaction has necessarily been accepted.
func reachedStatus(current, want string) bool {
	if current == want {
		return true
	}
	return want == StatusAccepted && current == StatusFinalized
}
