package handlers

import (
	"net/http"
	"time"

	"meetwise/models"
	"meetwise/services/meeting"
	"meetwise/utils"

	"github.com/gin-gonic/gin"
)

// MeetingLedger is wired in main.
var MeetingLedger meeting.Ledger

// GetMeeting returns one meeting by id.
func GetMeeting(c *gin.Context) {
	m, err := MeetingLedger.Get(c.Request.Context(), models.MeetingID(c.Param("id")))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ListMeetings returns meetings for either an expert or a guest within a
// time range.
func ListMeetings(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	expertID := c.Query("expertId")
	guest := c.Query("guestIdentifier")
	switch {
	case expertID != "" && guest == "":
		meetings, err := MeetingLedger.ForExpert(c.Request.Context(), models.ExpertID(expertID), from, to)
		if err != nil {
			utils.JSONAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"meetings": meetings})
	case guest != "" && expertID == "":
		meetings, err := MeetingLedger.ForGuest(c.Request.Context(), models.GuestID(guest), from, to)
		if err != nil {
			utils.JSONAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"meetings": meetings})
	default:
		utils.JSONError(c, http.StatusBadRequest, "invalid input",
			"exactly one of expertId or guestIdentifier is required")
	}
}

type cancelInput struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor" binding:"omitempty,oneof=guest expert"`
}

// CancelMeeting cancels a confirmed meeting: refund, payout void, calendar
// cleanup. Cancelling twice is 410.
func CancelMeeting(c *gin.Context) {
	var input cancelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if input.Actor == "" {
		input.Actor = "guest"
	}

	_, err := MeetingLedger.Cancel(c.Request.Context(), models.MeetingID(c.Param("id")),
		input.Reason, input.Actor, time.Now().UTC())
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	const layout = time.RFC3339
	fromStr := c.DefaultQuery("from", time.Now().UTC().Format(layout))
	toStr := c.DefaultQuery("to", time.Now().UTC().AddDate(0, 1, 0).Format(layout))

	from, err := time.Parse(layout, fromStr)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "from must be RFC3339")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(layout, toStr)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "to must be RFC3339")
		return time.Time{}, time.Time{}, false
	}
	if !from.Before(to) {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "from must precede to")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
