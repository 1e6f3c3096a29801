package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tavolo/restaurant-reservation/internal/config"
	"github.com/tavolo/restaurant-reservation/internal/database"
	"github.com/tavolo/restaurant-reservation/internal/handler"
	"github.com/tavolo/restaurant-reservation/internal/legacy"
	"github.com/tavolo/restaurant-reservation/internal/metrics"
	"github.com/tavolo/restaurant-reservation/internal/queue"
	"github.com/tavolo/restaurant-reservation/internal/repository"
	"github.com/tavolo/restaurant-reservation/internal/router"
	"github.com/tavolo/restaurant-reservation/internal/schedule"
	queue_publisher "github.com/tavolo/restaurant-reservation/internal/service"
)

func main() {
	// .env is optional; in containers the variables come from the runtime.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339

	cfg := config.Load()
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	versions := repository.NewServiceVersionRepo(db)
	schedules := repository.NewScheduleRepo(db)
	exceptions := repository.NewDateExceptionRepo(db)
	reservations := repository.NewReservationRepo(db)
	legacySlots := repository.NewLegacySlotRepo(db)
	audits := repository.NewAuditRepo(db)

	svc := schedule.NewService(versions, schedules, schedules, exceptions, reservations, audits, log)
	validator := schedule.NewValidator(versions, svc, reservations, log)

	events := cfg.AMQPURL != ""
	var notifier legacy.Notifier
	if events {
		notifier = queue_publisher.BrokerNotifier{}
	}
	versioner := legacy.NewVersioner(legacySlots, notifier, log)

	metrics.Register()

	if events {
		go func() {
			if err := queue.StartScheduleConsumer(); err != nil {
				log.Warn().Err(err).Msg("schedule consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true

	availability := handler.NewAvailabilityHandler(svc, validator, events)
	staff := handler.NewStaffHandler(svc, versions, events)
	legacyH := handler.NewLegacyHandler(versioner, events)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, availability, rdb)
	router.RegisterCustomer(e, availability, cfg.JWTSecret)
	router.RegisterStaff(e, staff, legacyH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
