package handlers

import (
	"errors"
	"net/http"
	"time"

	"meetwise/models"
	"meetwise/services/availability"
	"meetwise/utils"

	"github.com/gin-gonic/gin"
)

// AvailabilityService is wired in main.
var AvailabilityService availability.Service

// GetAvailability returns the bookable start instants for an event.
// An empty day is a valid answer; a calendar we cannot read is not.
func GetAvailability(c *gin.Context) {
	expertID := models.ExpertID(c.Query("expertId"))
	eventID := models.EventID(c.Query("eventId"))
	if expertID == "" || eventID == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input",
			"expertId and eventId query parameters are required")
		return
	}
	now := time.Now().UTC()

	result, err := AvailabilityService.AvailableStarts(c.Request.Context(), expertID, eventID, now)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, availabilityResponse(result))
	case errors.Is(err, availability.ErrNoSlots):
		resp := availabilityResponse(result)
		resp["reason"] = "no_slots"
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, availability.ErrCalendarNotConnected):
		utils.JSONError(c, http.StatusPreconditionFailed, "CalendarNotConnected",
			"the expert has not connected an external calendar")
	case errors.Is(err, availability.ErrAvailabilityUnknown):
		utils.JSONError(c, http.StatusServiceUnavailable, "AvailabilityUnknown",
			"availability could not be computed, try again")
	default:
		utils.JSONAppError(c, err)
	}
}

func availabilityResponse(result *availability.Result) gin.H {
	candidates := make([]string, 0, len(result.Candidates))
	for _, t := range result.Candidates {
		candidates = append(candidates, t.Format(time.RFC3339))
	}
	return gin.H{
		"timezone":   result.Timezone,
		"candidates": candidates,
	}
}
