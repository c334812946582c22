package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dragon-treasure/internal/services"
)

type ConsoleHandler struct {
	sessions *services.SessionManager
}

func NewConsoleHandler(sessions *services.SessionManager) *ConsoleHandler {
	return &ConsoleHandler{sessions: sessions}
}

func (h *ConsoleHandler) GetEntries(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": gs.Activity().Entries()})
}

func (h *ConsoleHandler) Clear(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	gs.Activity().Clear()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
