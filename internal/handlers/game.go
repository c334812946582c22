package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dragon-treasure/internal/models"
	"dragon-treasure/internal/services"
)

type GameHandler struct {
	sessions *services.SessionManager
}

func NewGameHandler(sessions *services.SessionManager) *GameHandler {
	return &GameHandler{sessions: sessions}
}

// currentSession resolves the session of the authenticated caller and writes
// the error response itself when that fails.
func currentSession(c *gin.Context, sessions *services.SessionManager) (*services.GameSession, bool) {
	sessionID := c.GetString("session_id")
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return nil, false
	}

	gs, err := sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return gs, true
}

func (h *GameHandler) GetContract(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	address := gs.ContractAddress()
	c.JSON(http.StatusOK, gin.H{
		"address":   address,
		"connected": address != "",
	})
}

func (h *GameHandler) SetContract(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req models.ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": models.ErrAddressRequired.Error(),
		})
		return
	}

	address, err := gs.ConnectContract(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"address": address,
		"stats":   gs.Stats(),
	})
}

// GetStats returns the cached stats, reading them from the contract when
// nothing is cached or refresh=true is passed.
func (h *GameHandler) GetStats(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	stats := gs.Stats()
	if stats == nil || c.Query("refresh") == "true" {
		var err error
		stats, err = gs.RefreshStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *GameHandler) GetTreasureCount(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	count, err := gs.TreasureCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"treasure_remaining": count})
}

func (h *GameHandler) SubmitPlea(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	var req models.PleaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	entry, err := gs.SubmitPlea(c.Request.Context(), req.Plea)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ClaimResponse{
		Entry: *entry,
		Stats: gs.Stats(),
	})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": gs.History()})
}

func (h *GameHandler) GetLatestResult(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":   gs.LatestResult(),
		"claiming": gs.Claiming(),
	})
}
