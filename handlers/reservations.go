package handlers

import (
	"net/http"
	"time"

	"meetwise/models"
	"meetwise/services/reservation"
	"meetwise/utils"

	"github.com/gin-gonic/gin"
)

// ReservationManager is wired in main.
var ReservationManager reservation.Manager

type holdInput struct {
	EventID         string   `json:"eventId" binding:"required"`
	Start           string   `json:"start" binding:"required"`
	GuestIdentifier string   `json:"guestIdentifier" binding:"required"`
	GuestEmail      string   `json:"guestEmail"`
	GuestTimezone   string   `json:"guestTimezone"`
	GuestNotes      string   `json:"guestNotes"`
	PaymentMethods  []string `json:"paymentMethods"`
}

// CreateReservation takes a hold on a slot and opens the payment session.
// 409 means the slot went to someone else; the guest should pick again.
func CreateReservation(c *gin.Context) {
	var input holdInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	start, err := time.Parse(time.RFC3339, input.Start)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "start must be RFC3339")
		return
	}

	result, err := ReservationManager.Hold(c.Request.Context(), reservation.HoldRequest{
		EventID:         models.EventID(input.EventID),
		Start:           start,
		GuestIdentifier: models.GuestID(input.GuestIdentifier),
		GuestEmail:      input.GuestEmail,
		GuestTimezone:   input.GuestTimezone,
		GuestNotes:      input.GuestNotes,
		PaymentMethods:  input.PaymentMethods,
	}, time.Now().UTC())
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reservation": result.Reservation,
		"checkoutUrl": result.CheckoutURL,
	})
}

// GetReservation returns the hold, mainly for the post-checkout poll.
func GetReservation(c *gin.Context) {
	res, err := ReservationManager.Get(c.Request.Context(), models.ReservationID(c.Param("id")))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AbortReservation releases a hold at the guest's request. Idempotent: a
// second abort of the same hold is still 204.
func AbortReservation(c *gin.Context) {
	err := ReservationManager.Abort(c.Request.Context(), models.ReservationID(c.Param("id")), "guest_abort")
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
