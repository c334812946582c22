package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"dragon-treasure/internal/models"
	"dragon-treasure/internal/services"
)

// respondError maps service errors onto status codes. Claim failures keep
// the player-facing message as details.
func respondError(c *gin.Context, err error) {
	var claimErr *services.ClaimError

	switch {
	case models.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
	case errors.Is(err, services.ErrNoContract):
		c.JSON(http.StatusConflict, gin.H{"error": "No contract connected", "details": "Please enter the deployed contract address."})
	case errors.Is(err, services.ErrClaimInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Claim in progress", "details": "Awaiting the Dragon's Judgment..."})
	case errors.As(err, &claimErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Transaction Failed", "details": claimErr.Message})
	default:
		_ = c.Error(err)
		log.WithError(err).WithField("session_id", c.GetString("session_id")).Warn("GenLayer request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Transaction Failed", "details": err.Error()})
	}
}
