package models

const (
	MaxPleaLength     = 500
	MaxHistoryEntries = 50
	MinAddressLength  = 10
)

type PleaRequest struct {
	Plea string `json:"plea"`
}

type ContractRequest struct {
	Address string `json:"address" binding:"required"`
}

type ClaimResponse struct {
	Entry GameHistoryEntry `json:"entry"`
	Stats *GameStats       `json:"stats,omitempty"`
}
