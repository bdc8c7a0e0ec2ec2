package handlers

import (
	"net/http"

	"meetwise/models"
	"meetwise/services/calendar"
	"meetwise/utils"

	"github.com/gin-gonic/gin"
)

// CalendarGateway is wired in main.
var CalendarGateway calendar.Gateway

// ConnectCalendar starts the OAuth consent flow for the expert's external
// calendar.
func ConnectCalendar(c *gin.Context) {
	expertID := models.ExpertID(c.Param("expertId"))
	if _, err := ExpertRepo.GetByID(c.Request.Context(), expertID); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": CalendarGateway.AuthCodeURL(expertID)})
}

// CalendarCallback finishes the consent flow. The state parameter carries
// the expert id the flow was started for.
func CalendarCallback(c *gin.Context) {
	expertID := models.ExpertID(c.Query("state"))
	code := c.Query("code")
	if expertID == "" || code == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "state and code are required")
		return
	}
	if _, err := ExpertRepo.GetByID(c.Request.Context(), expertID); err != nil {
		utils.JSONAppError(c, err)
		return
	}

	if err := CalendarGateway.ExchangeCode(c.Request.Context(), expertID, code); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}
