package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"meetwise/config"
	"meetwise/cron"
	"meetwise/middleware"
	"meetwise/models"
	"meetwise/services/payment"
	"meetwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Wired in main.
var (
	DedupStore *redis.Client
	CronJobs   *cron.Jobs
)

// dedupTTL must outlive the provider's redelivery window.
const dedupTTL = 48 * time.Hour

const maxWebhookBody = 1 << 16

// PaymentWebhook ingests provider payment events. The event is acknowledged
// with a 2xx only once its outcome is durable; anything else makes the
// provider redeliver.
func PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	event, err := payment.VerifyEvent(payload, c.GetHeader("Stripe-Signature"),
		config.AppConfig.StripeWebhookSecret, config.AppConfig.StripeWebhookSecretNext)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}

	ctx := c.Request.Context()
	dedupKey := "pay:evt:" + event.ID
	fresh, err := DedupStore.SetNX(ctx, dedupKey, 1, dedupTTL).Result()
	if err != nil {
		// Cannot prove we have not seen this event; let it come back.
		utils.JSONError(c, http.StatusServiceUnavailable, "dedup store unavailable", err.Error())
		return
	}
	if !fresh {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	out, err := payment.HandleEvent(event)
	if err == nil {
		err = ReservationManager.ApplyOutcome(ctx, out, time.Now().UTC())
	}
	if err != nil {
		// Free the event id so the redelivery is not swallowed as a dup.
		if delErr := DedupStore.Del(ctx, dedupKey).Err(); delErr != nil {
			zap.L().Error("failed to release webhook dedup key",
				zap.String("eventID", event.ID), zap.Error(delErr))
		}
		utils.JSONError(c, http.StatusInternalServerError, "event not applied", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

type calendarWebhookInput struct {
	ExpertID string `json:"expertId"`
}

// CalendarWebhook ingests signed calendar-change notifications and drops
// the cached token probe so the next availability read sees fresh state.
func CalendarWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	err = middleware.VerifySignedPayload(payload, c.GetHeader("X-Calendar-Signature"),
		time.Now().UTC(),
		config.AppConfig.CalendarWebhookSecret, config.AppConfig.CalendarWebhookSecretNext)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}

	var input calendarWebhookInput
	if err := json.Unmarshal(payload, &input); err != nil || input.ExpertID == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid payload", "expertId is required")
		return
	}

	if err := CalendarGateway.InvalidateProbe(c.Request.Context(), models.ExpertID(input.ExpertID)); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "probe cache unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// RunCronJob triggers one maintenance job by name. Sits behind the cron
// secret middleware.
func RunCronJob(c *gin.Context) {
	if err := CronJobs.Run(c.Request.Context(), c.Param("job")); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ran": c.Param("job")})
}
