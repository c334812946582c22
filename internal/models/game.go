package models

// GameResult is the dragon's decision on a single plea, as returned by the
// claim_treasure contract method.
type GameResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Reasoning string `json:"reasoning"`
	Amount    int64  `json:"amount"`
}

// Consistent reports whether the result obeys amount > 0 => success. The
// contract is responsible for this; callers use it only to flag responses.
func (r GameResult) Consistent() bool {
	return r.Amount <= 0 || r.Success
}

type GameStats struct {
	TreasureRemaining int64 `json:"treasure_remaining"`
	TotalAttempts     int64 `json:"total_attempts"`
	SuccessfulClaims  int64 `json:"successful_claims"`
}

type GameHistoryEntry struct {
	ID        string     `json:"id"`
	Plea      string     `json:"plea"`
	Result    GameResult `json:"result"`
	Timestamp int64      `json:"timestamp"` // unix millis
}
