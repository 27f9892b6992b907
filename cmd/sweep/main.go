// Command sweep runs one due-date escalation pass and prints the report as JSON.
// It is meant for cron jobs and for catching up after downtime.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-school-library/internal/config"
	"go-school-library/internal/repository"
	"go-school-library/internal/service"
	"go-school-library/pkg/clock"
	"go-school-library/pkg/database"
	"go-school-library/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	date := flag.String("date", "", "day to sweep as YYYY-MM-DD (default today)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	clk := clock.New(cfg.Location())
	day := clk.Today()
	if *date != "" {
		if day, err = clock.ParseDate(*date); err != nil {
			zlog.Fatal("invalid -date", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		zlog.Fatal("connect database", zap.Error(err))
	}
	if err := database.Migrate(ctx, db); err != nil {
		zlog.Fatal("migrate database", zap.Error(err))
	}

	userRepo := repository.NewUserRepo(db)
	// No websocket clients here; notifications are stored and picked up on next fetch.
	notifier := service.NewNotificationService(repository.NewNotificationRepo(db), userRepo, nil, zlog)
	borrowings := service.NewBorrowingService(
		repository.NewBorrowingRepo(db), repository.NewBookRepo(db), userRepo, notifier, db,
		service.BorrowingConfig{Policy: cfg.Policy(), MaxActiveLoans: cfg.MaxActiveLoans},
		clk, zlog,
	)

	report, err := borrowings.RunDailySweep(ctx, day)
	if err != nil {
		zlog.Fatal("sweep failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		zlog.Fatal("write report", zap.Error(err))
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}
