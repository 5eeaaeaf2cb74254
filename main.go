package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"workshop-tickets/internal/auth"
	"workshop-tickets/internal/auth/auth_api"
	"workshop-tickets/internal/config"
	"workshop-tickets/internal/database/migrations"
	"workshop-tickets/internal/kafka"
	"workshop-tickets/internal/logger"
	"workshop-tickets/internal/mail"
	"workshop-tickets/internal/pool"
	"workshop-tickets/internal/sequence"
	ticketdb "workshop-tickets/internal/tickets/db"
	tickets "workshop-tickets/internal/tickets/service"
	mailtpl "workshop-tickets/internal/tickets/template"
	"workshop-tickets/internal/tickets/ticket_api"
)

func connectPostgres(log *logger.Logger, dsn string) *bun.DB {
	if dsn == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err == nil {
			err = sqldb.Ping()
		}
		if err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("PostgreSQL connection failed: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("PostgreSQL unreachable after %d attempts: %v", maxRetries, err))
	}

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func buildAllocator(log *logger.Logger, cfg *config.Config, bunDB *bun.DB) tickets.Allocator {
	switch cfg.Tickets.IssueMode {
	case "pool":
		log.Info("TICKETS", "Issuance mode: pre-provisioned credential pool")
		return &tickets.PoolAllocator{Pool: pool.New(bunDB)}
	case "sequence":
		log.Info("TICKETS", fmt.Sprintf("Issuance mode: numbered sequence (counter %q)", cfg.Tickets.CounterName))
		return &tickets.SequenceAllocator{
			Sequence:    sequence.NewAllocator(bunDB),
			CounterName: cfg.Tickets.CounterName,
		}
	default:
		log.Fatal("CONFIG", fmt.Sprintf("unknown ISSUE_MODE %q (want sequence or pool)", cfg.Tickets.IssueMode))
		return nil
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()

	bunDB := connectPostgres(log, cfg.Database.PostgresDSN)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, cfg.Database.MigrationsDir)
		if err := runner.Up(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		if version, err := runner.Version(); err == nil {
			log.Info("DATABASE", fmt.Sprintf("Schema at version %d", version))
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	defer redisClient.Close()
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	var publisher tickets.Publisher
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{
			kafka.TopicTicketIssued,
			kafka.TopicTicketCheckedIn,
		}); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = producer
		log.Info("KAFKA", "Kafka producer initialized")
	} else {
		log.Info("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	mailer := mail.New(cfg.Email)
	renderer := mailtpl.NewMailGenerator()
	allocator := buildAllocator(log, cfg, bunDB)

	ticketService := tickets.NewTicketService(&ticketdb.DB{Bun: bunDB}, allocator, mailer, renderer)
	ticketService.Logger = log
	ticketService.Publisher = publisher
	ticketService.Subject = cfg.Tickets.MailSubject
	ticketService.DayOffset = time.FixedZone(
		fmt.Sprintf("GMT%+d", cfg.Tickets.ExportOffsetHours),
		cfg.Tickets.ExportOffsetHours*60*60,
	)

	tokenCache := auth.NewRedisCache(redisClient)
	authHandler := auth_api.NewHandler(&cfg.Auth, tokenCache, log)
	ticketHandler := ticket_api.NewHandler(ticketService, log, redisClient)

	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Get("/check", authHandler.Check)
		r.Post("/logout", authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.JWTSecret, tokenCache))

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/sendTicket", ticketHandler.SendTicket)
			r.Post("/sendTickets", ticketHandler.SendTicketBatch)
			r.Get("/searchTickets/{studentId}", ticketHandler.SearchTickets)
			r.Get("/ticketInfo/{ticketRef}", ticketHandler.TicketInfo)
			r.Put("/useTicket/{ticketRef}", ticketHandler.UseTicket)
			r.Get("/ticketStats", ticketHandler.TicketStats)
			r.Get("/exportTickets", ticketHandler.ExportTickets)
		})
	})
	log.Info("ROUTER", "Auth routes registered under /auth, ticket routes under /tickets")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Workshop ticket service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Workshop ticket service shutdown complete")
	}
}
