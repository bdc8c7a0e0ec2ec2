package handlers

import (
	"net/http"
	"time"

	expertRepo "meetwise/database/repository/expert"
	scheduleRepo "meetwise/database/repository/schedule"
	"meetwise/models"
	"meetwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Wired in main.
var (
	ScheduleRepo scheduleRepo.ScheduleRepository
	ExpertRepo   expertRepo.ExpertRepository
)

// GetSchedule returns the expert's weekly availability.
func GetSchedule(c *gin.Context) {
	schedule, err := ScheduleRepo.LoadSchedule(c.Request.Context(), models.ExpertID(c.Param("expertId")))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// PutSchedule replaces the expert's weekly availability.
func PutSchedule(c *gin.Context) {
	expertID := models.ExpertID(c.Param("expertId"))
	if _, err := ExpertRepo.GetByID(c.Request.Context(), expertID); err != nil {
		utils.JSONAppError(c, err)
		return
	}

	var schedule models.WeeklySchedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	schedule.ExpertID = expertID
	schedule.UpdatedAt = time.Now().UTC()

	if err := schedule.Validate(); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid schedule", err.Error())
		return
	}
	if err := ScheduleRepo.SaveSchedule(c.Request.Context(), &schedule); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// GetPolicy returns the expert's booking policy with defaults applied.
func GetPolicy(c *gin.Context) {
	policy, err := ScheduleRepo.LoadPolicy(c.Request.Context(), models.ExpertID(c.Param("expertId")))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

// PutPolicy replaces the expert's booking policy.
func PutPolicy(c *gin.Context) {
	expertID := models.ExpertID(c.Param("expertId"))
	if _, err := ExpertRepo.GetByID(c.Request.Context(), expertID); err != nil {
		utils.JSONAppError(c, err)
		return
	}

	var policy models.BookingPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := policy.Validate(); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid policy", err.Error())
		return
	}
	if err := ScheduleRepo.SavePolicy(c.Request.Context(), expertID, policy); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

// ListBlockedDates returns blocked dates in a local-date range.
func ListBlockedDates(c *gin.Context) {
	from := c.DefaultQuery("from", time.Now().UTC().Format("2006-01-02"))
	to := c.DefaultQuery("to", time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02"))

	blocked, err := ScheduleRepo.ListBlockedDates(c.Request.Context(),
		models.ExpertID(c.Param("expertId")), from, to)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blockedDates": blocked})
}

type blockedDateInput struct {
	LocalDate string `json:"localDate" binding:"required"`
	Reason    string `json:"reason"`
}

// AddBlockedDate removes all slots on one local date. Idempotent.
func AddBlockedDate(c *gin.Context) {
	var input blockedDateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if _, err := time.Parse("2006-01-02", input.LocalDate); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "localDate must be YYYY-MM-DD")
		return
	}

	blocked := &models.BlockedDate{
		ExpertID:  models.ExpertID(c.Param("expertId")),
		LocalDate: input.LocalDate,
		Reason:    input.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := ScheduleRepo.AddBlockedDate(c.Request.Context(), blocked); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blocked)
}

// RemoveBlockedDate re-opens a previously blocked date.
func RemoveBlockedDate(c *gin.Context) {
	err := ScheduleRepo.RemoveBlockedDate(c.Request.Context(),
		models.ExpertID(c.Param("expertId")), c.Param("localDate"))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEvents returns the expert's bookable offerings.
func ListEvents(c *gin.Context) {
	events, err := ExpertRepo.ListEvents(c.Request.Context(), models.ExpertID(c.Param("expertId")))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// CreateEvent adds a bookable offering for the expert.
func CreateEvent(c *gin.Context) {
	expertID := models.ExpertID(c.Param("expertId"))
	if _, err := ExpertRepo.GetByID(c.Request.Context(), expertID); err != nil {
		utils.JSONAppError(c, err)
		return
	}

	var event models.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	event.ID = models.EventID(uuid.New().String())
	event.ExpertID = expertID
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt

	if err := event.Validate(); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid event", err.Error())
		return
	}
	if err := ExpertRepo.CreateEvent(c.Request.Context(), &event); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// UpdateEvent edits an offering. The id and owner are immutable.
func UpdateEvent(c *gin.Context) {
	eventID := models.EventID(c.Param("eventId"))
	existing, err := ExpertRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}

	var event models.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	event.ID = existing.ID
	event.ExpertID = existing.ExpertID
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now().UTC()

	if err := event.Validate(); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid event", err.Error())
		return
	}
	if err := ExpertRepo.UpdateEvent(c.Request.Context(), &event); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}
