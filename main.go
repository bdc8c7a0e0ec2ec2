package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetwise/config"
	"meetwise/cron"
	"meetwise/database"
	credentialRepo "meetwise/database/repository/credential"
	expertRepo "meetwise/database/repository/expert"
	meetingRepo "meetwise/database/repository/meeting"
	reservationRepo "meetwise/database/repository/reservation"
	scheduleRepo "meetwise/database/repository/schedule"
	transferRepo "meetwise/database/repository/transfer"
	"meetwise/handlers"
	"meetwise/middleware"
	"meetwise/models"
	"meetwise/routes"
	"meetwise/services/availability"
	"meetwise/services/calendar"
	"meetwise/services/meeting"
	"meetwise/services/payment"
	"meetwise/services/payout"
	"meetwise/services/reservation"
	"meetwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	stripe "github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	database.InitDB()
	utils.InitCache()
	utils.InitDedupCache()

	stripe.Key = config.AppConfig.StripeKey

	experts := expertRepo.NewMongoExpertRepo()
	schedules := scheduleRepo.NewMongoScheduleRepo(models.BookingPolicy{
		TimeSlotInterval:  config.AppConfig.DefaultSlotIntervalMinutes,
		BookingWindowDays: config.AppConfig.DefaultBookingWindowDays,
		MinimumNotice:     config.AppConfig.DefaultMinimumNoticeMinutes,
		BeforeEventBuffer: config.AppConfig.DefaultBeforeBufferMinutes,
		AfterEventBuffer:  config.AppConfig.DefaultAfterBufferMinutes,
	})
	reservations := reservationRepo.NewMongoReservationRepo()
	meetings := meetingRepo.NewMongoMeetingRepo()
	transfers := transferRepo.NewMongoTransferRepo()
	credentials := credentialRepo.NewMongoCredentialRepo()
	ensureIndexes(logger, experts, schedules, reservations, meetings, transfers, credentials)

	calendarGateway := calendar.NewGoogleGateway(
		config.AppConfig.GoogleClientID,
		config.AppConfig.GoogleClientSecret,
		config.AppConfig.GoogleRedirectURL,
		credentials,
		utils.GetCacheClient(),
		logger,
	)

	payments := payment.NewStripeOrchestrator(
		config.AppConfig.CheckoutSuccessURL,
		config.AppConfig.CheckoutCancelURL,
		logger,
	)

	queueOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
	enqueuer := cron.NewEnqueuer(queueOpts)
	defer enqueuer.Close()

	availabilitySvc := &availability.DefaultAvailabilityService{
		Experts:      experts,
		Schedule:     schedules,
		Reservations: reservations,
		Meetings:     meetings,
		Calendar:     calendarGateway,
		Logger:       logger,
	}

	reservationMgr := &reservation.DefaultReservationManager{
		Experts:      experts,
		Reservations: reservations,
		Meetings:     meetings,
		Availability: availabilitySvc,
		Payments:     payments,
		Calendar:     calendarGateway,
		Enqueue:      enqueuer,
		Locks:        utils.NewRedisLocker(utils.GetCacheClient()),
		Logger:       logger,
		HoldTTL:      time.Duration(config.AppConfig.ReservationTTLMinutes) * time.Minute,
		VoucherGrace: time.Duration(config.AppConfig.VoucherGraceMinutes) * time.Minute,
		SafetyDelay:  time.Duration(config.AppConfig.PayoutSafetyDelayHours) * time.Hour,
		FeeRate:      config.AppConfig.FeeRate,
	}

	meetingLedger := &meeting.DefaultMeetingLedger{
		Meetings:  meetings,
		Transfers: transfers,
		Payments:  payments,
		Calendar:  calendarGateway,
		Enqueue:   enqueuer,
		Logger:    logger,
	}

	payoutScheduler := payout.NewPayoutScheduler(transfers, meetings, config.AppConfig.PayoutDelayFor, logger)

	jobs := &cron.Jobs{
		Reservations: reservationMgr,
		Payouts:      payoutScheduler,
		Meetings:     meetings,
		Logger:       logger,
	}

	handlers.AvailabilityService = availabilitySvc
	handlers.ReservationManager = reservationMgr
	handlers.MeetingLedger = meetingLedger
	handlers.PayoutService = payoutScheduler
	handlers.TransferRepo = transfers
	handlers.ScheduleRepo = schedules
	handlers.ExpertRepo = experts
	handlers.CalendarGateway = calendarGateway
	handlers.DedupStore = utils.GetDedupClient()
	handlers.CronJobs = jobs

	worker, err := cron.NewWorker(queueOpts, jobs, reservationMgr, calendarGateway, logger)
	if err != nil {
		logger.Fatal("Failed to build job worker", zap.Error(err))
	}
	if err := worker.Start(); err != nil {
		logger.Fatal("Failed to start job worker", zap.Error(err))
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(utils.ErrorHandler())
	r.Use(gin.Logger())
	r.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	routes.RegisterRoutes(r)

	utils.StartHealthMonitor([]*redis.Client{utils.CacheClient, utils.DedupClient}, database.MongoClient)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", config.AppConfig.AppPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited cleanly")
}

type indexEnsurer interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(logger *zap.Logger, repos ...indexEnsurer) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, repo := range repos {
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Fatal("Failed to ensure indexes", zap.Error(err))
		}
	}
}
