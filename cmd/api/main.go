package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-school-library/internal/config"
	"go-school-library/internal/handler"
	"go-school-library/internal/middleware"
	"go-school-library/internal/repository"
	"go-school-library/internal/service"
	"go-school-library/internal/worker"
	"go-school-library/internal/ws"
	"go-school-library/pkg/clock"
	"go-school-library/pkg/database"
	"go-school-library/pkg/jwt"
	"go-school-library/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("application terminated with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// 3. Dependency Injection (Wiring Layers)
	clk := clock.New(cfg.Location())
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL, "perpustakaan")
	hub := ws.NewHub(zlog.Named("ws"))

	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	bookRepo := repository.NewBookRepo(db)
	borrowingRepo := repository.NewBorrowingRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)
	reportRepo := repository.NewReportRepo(db)

	// Seed default privileges, roles, and admin user
	if err := service.SeedDefaults(privilegeRepo, roleRepo, userRepo, cfg.AdminEmail, cfg.AdminPassword, zlog); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}

	notificationService := service.NewNotificationService(notificationRepo, userRepo, hub, zlog.Named("notification"))
	borrowingService := service.NewBorrowingService(
		borrowingRepo, bookRepo, userRepo, notificationService, db,
		service.BorrowingConfig{Policy: cfg.Policy(), MaxActiveLoans: cfg.MaxActiveLoans},
		clk, zlog.Named("borrowing"),
	)
	catalogService := service.NewCatalogService(bookRepo, categoryRepo, borrowingRepo, db, hub, zlog.Named("catalog"))
	categoryService := service.NewCategoryService(categoryRepo, bookRepo)
	authService := service.NewAuthService(userRepo, tokens)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)
	reportService := service.NewReportService(reportRepo, borrowingRepo, clk)

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService),
		Role:         handler.NewRoleHandler(roleRepo, privilegeRepo),
		Category:     handler.NewCategoryHandler(categoryService),
		Book:         handler.NewBookHandler(catalogService),
		Borrowing:    handler.NewBorrowingHandler(borrowingService, clk),
		Notification: handler.NewNotificationHandler(notificationService),
		Report:       handler.NewReportHandler(reportService, clk),
		WS:           handler.NewWSHandler(hub),
	}

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Perpustakaan Sekolah v1.0",
		ErrorHandler: handler.NewErrorHandler(zlog.Named("http")),
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	handler.SetupRoutes(app, handlers, middleware.RequireAuth(userRepo, tokens))

	// 5. Run server, hub, and sweeper until a signal arrives
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		sweeper := worker.NewSweeper(borrowingService, clk, cfg.SweepInterval, cfg.SweepOnStart, zlog.Named("sweeper"))
		return sweeper.Run(ctx)
	})

	g.Go(func() error {
		zlog.Info("starting server", zap.String("port", cfg.Port), zap.String("timezone", cfg.Timezone))
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		zlog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		zlog.Info("server exited")
		return nil
	})

	return g.Wait()
}
