package main

import (
	"beautyhub-backend/chat"
	"beautyhub-backend/clients/click"
	"beautyhub-backend/config"
	"beautyhub-backend/controllers"
	"beautyhub-backend/repository"
	"beautyhub-backend/routes"
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	config.InitLogger("beautyhub-backend", cfg.Env)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	rdb, err := config.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process rate limits")
		rdb = nil
	}

	pricing, err := config.LoadPricing(cfg.PricingFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.PricingFile).Msg("pricing load failed")
	}

	store := repository.NewStore(db)
	provider := click.NewHTTPClient(click.Config{
		BaseURL:        cfg.Click.APIURL,
		MerchantID:     cfg.Click.MerchantID,
		ServiceID:      cfg.Click.ServiceID,
		SecretKey:      cfg.Click.SecretKey,
		MerchantUserID: cfg.Click.MerchantUserID,
	})
	verifier := utils.NewTokenVerifier(cfg.JWTSecret, cfg.JWTAlgorithm)

	sms := services.NewSmsService(store, cfg.Twilio)
	notifications := services.NewNotificationService(store, sms)
	booking := services.NewBookingService(store, notifications, cfg.SlotMinutes)
	slots := services.NewSlotService(store, cfg.SlotMinutes)
	schedules := services.NewScheduleService(store)
	busy := services.NewBusySlotService(store)
	chats := services.NewChatService(store)
	entitlements := services.NewEntitlementService(store)
	cards := services.NewCardService(store, provider)
	payments := services.NewPaymentService(store, provider, pricing, cfg.FrontendURL)
	callbacks := services.NewCallbackService(store, entitlements, cfg.Click.SecretKey)
	salons := services.NewSalonService(store)
	sweep := services.NewSweepService(store, entitlements, payments, rdb, cfg.SweepInterval)

	var limiter utils.RateLimiter = utils.NewMemoryRateLimiter()
	if rdb != nil {
		limiter = utils.NewRedisRateLimiter(rdb)
	}

	router := routes.SetupRouter(routes.Handlers{
		Verifier:    verifier,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		Schedules:   &controllers.ScheduleController{Schedules: schedules, Slots: slots},
		Appointments: &controllers.AppointmentController{
			Booking: booking,
		},
		Employees: &controllers.EmployeeController{Busy: busy, Posts: entitlements},
		Chat:      &controllers.ChatController{Chats: chats},
		ChatSocket: chat.NewServer(
			chat.NewHub(), verifier, chats, notifications, cfg.CORSOrigins,
		),
		Notifications: &controllers.NotificationController{Notifications: notifications},
		Payments: &controllers.PaymentController{
			Payments:     payments,
			Cards:        cards,
			Callbacks:    callbacks,
			Entitlements: entitlements,
		},
		Salons: &controllers.SalonController{Salons: salons, Promotions: entitlements},
	})
	if cfg.Env != "production" {
		printRoutes(router)
	}

	if err := sweep.Start(); err != nil {
		log.Fatal().Err(err).Msg("sweep scheduling failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	select {
	case <-sweep.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("sweep still running at shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		log.Debug().Str("method", route.Method).Str("path", route.Path).Msg("route")
	}
}
