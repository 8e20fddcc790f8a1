package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/config"
	"github.com/codearena/arena-go-api/internal/database"
	"github.com/codearena/arena-go-api/internal/handler"
	"github.com/codearena/arena-go-api/internal/middleware"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/internal/router"
	"github.com/codearena/arena-go-api/internal/service"
	"github.com/codearena/arena-go-api/internal/worker"
	"github.com/codearena/arena-go-api/pkg/events"
	"github.com/codearena/arena-go-api/pkg/sandbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Problem{}, &models.TestCase{}, &models.Submission{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	cache, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer cache.Close()

	executor, err := sandbox.NewDockerExecutor(sandbox.Config{
		Host:   cfg.DockerHost,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to create sandbox executor: %v", err)
	}
	defer executor.Close()

	runner := sandbox.NewRunner(executor, sandbox.RunnerConfig{
		WorkspaceRoot:  cfg.WorkspaceRoot,
		CompileTimeout: cfg.CompileTimeout,
	}, logger)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		publisher = events.NewNATSPublisher(conn, cfg.NATSSubject, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	userRepo := repository.NewUserRepository(db)

	statsService := service.NewStatsService(submissionRepo, problemRepo, userRepo, logger)
	judgeService := service.NewJudgeService(submissionRepo, problemRepo, statsService, runner, publisher, logger)

	pool := worker.NewPool(cfg.JudgeWorkers, cfg.JudgeQueueSize, judgeService.Judge, logger)
	watchdog := worker.NewWatchdog(submissionRepo, pool, cfg.WatchdogInterval, cfg.WatchdogGrace, logger)

	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, pool, validate, logger)
	problemService := service.NewProblemService(problemRepo, cache, cfg.ProblemCacheTTL, validate, logger)

	judgeHandler := handler.NewJudgeHandler(submissionService, validate, logger)
	problemHandler := handler.NewProblemHandler(problemService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		JudgeHandler:   judgeHandler,
		ProblemHandler: problemHandler,
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	judgeCtx, stopJudging := context.WithCancel(context.Background())
	pool.Start(judgeCtx)
	go watchdog.Start(judgeCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopJudging, pool)
}

func waitForShutdown(app *fiber.App, stopJudging context.CancelFunc, pool *worker.Pool) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	stopJudging()
	pool.Wait()

	log.Println("server stopped")
}
