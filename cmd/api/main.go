package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/storm-dispatch/internal/api/http"
	"github.com/spec-kit/storm-dispatch/internal/api/http/handlers"
	"github.com/spec-kit/storm-dispatch/internal/auth"
	"github.com/spec-kit/storm-dispatch/internal/config"
	"github.com/spec-kit/storm-dispatch/internal/events"
	"github.com/spec-kit/storm-dispatch/internal/observability"
	"github.com/spec-kit/storm-dispatch/internal/persistence"
	"github.com/spec-kit/storm-dispatch/internal/policy"
	"github.com/spec-kit/storm-dispatch/internal/repository"
	"github.com/spec-kit/storm-dispatch/internal/service"
	"github.com/spec-kit/storm-dispatch/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	crewRepo := repository.NewCrewRepository(pool)
	grantRepo := repository.NewGrantRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	statusEventRepo := repository.NewStatusEventRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	segmentRepo := repository.NewWorkSegmentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	issueTypeRepo := repository.NewIssueTypeRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	txManager := repository.NewTxManager(pool)

	policyEngine := policy.NewEngine(grantRepo)
	auditRecorder := service.NewAuditRecorder(auditRepo, logger)
	tracker := service.NewSegmentTracker(segmentRepo)
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Policy:            policyEngine,
		Audit:             auditRecorder,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		StatusEventRepo: statusEventRepo,
		AssignmentRepo:  assignmentRepo,
		SegmentRepo:     segmentRepo,
		IssueTypeRepo:   issueTypeRepo,
		SessionRepo:     sessionRepo,
		GrantRepo:       grantRepo,
		Tracker:         tracker,
		Policy:          policyEngine,
		Audit:           auditRecorder,
		Tx:              txManager,
		Dispatcher:      dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:      ticketRepo,
		AssignmentRepo:  assignmentRepo,
		CompanyRepo:     companyRepo,
		CrewRepo:        crewRepo,
		StatusEventRepo: statusEventRepo,
		Tracker:         tracker,
		Policy:          policyEngine,
		Audit:           auditRecorder,
		Tx:              txManager,
		Dispatcher:      dispatcher,
	})
	directoryService := service.NewDirectoryService(service.DirectoryDependencies{
		CompanyRepo: companyRepo,
		CrewRepo:    crewRepo,
		GrantRepo:   grantRepo,
		UserRepo:    userRepo,
		Policy:      policyEngine,
		Audit:       auditRecorder,
	})
	sessionService := service.NewSessionService(service.SessionDependencies{
		SessionRepo:   sessionRepo,
		IssueTypeRepo: issueTypeRepo,
		Audit:         auditRecorder,
	})
	notificationService := service.NewNotificationService(dispatcher, redis.Client, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Assignments:    handlers.NewAssignmentsHandler(assignmentService),
		Companies:      handlers.NewCompaniesHandler(directoryService),
		Sessions:       handlers.NewSessionsHandler(sessionService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
