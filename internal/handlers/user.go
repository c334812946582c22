package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"dragon-treasure/internal/services"
)

type SessionHandler struct {
	sessions   *services.SessionManager
	jwtService *services.JWTService
}

func NewSessionHandler(sessions *services.SessionManager, jwtService *services.JWTService) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		jwtService: jwtService,
	}
}

// CreateSession starts a new player session with its own account and
// returns a token for it.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	player, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(player.ID)
	if err != nil {
		log.WithError(err).Error("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"session":    player,
	})
}

func (h *SessionHandler) GetCurrentSession(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	player := gs.Player()
	c.JSON(http.StatusOK, gin.H{
		"session": gin.H{
			"session_id":    player.ID,
			"account":       player.AccountAddress,
			"created_at":    player.CreatedAt,
			"last_accessed": player.LastAccessed,
		},
		"contract_address": gs.ContractAddress(),
		"claiming":         gs.Claiming(),
	})
}

func (h *SessionHandler) Logout(c *gin.Context) {
	sessionID := c.GetString("session_id")
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	if err := h.sessions.Close(c.Request.Context(), sessionID); err != nil {
		log.WithError(err).WithField("session_id", sessionID).Error("Failed to delete session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
