package main

import (
	"context"
	"os/signal"
	"syscall"

	"rota-engine/internal/config"
	"rota-engine/internal/export"
	"rota-engine/internal/repository"
	"rota-engine/internal/service"
	"rota-engine/pkg/telegram"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logger.Info("Initializing config...")
	cfg := config.GetEngineConfig()
	logger.Info("Config initialized...")

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get database instance:", err)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logger.Infof("Warning: Failed to enable foreign keys: %v", err)
	}

	rosterRepo, err := repository.NewGormRosterRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create roster repository")
	}

	exporter := export.NewExporter(cfg.OutputDir, logger)

	var notifier *telegram.Notifier
	if cfg.TelegramToken != "" {
		notifier, err = telegram.NewNotifier(cfg.TelegramToken, cfg.NotifierChatID)
		if err != nil {
			logger.Fatal("Failed to create Telegram notifier:", err)
		}
		logger.Infof("Authorized on account %s", notifier.Bot.Self.UserName)
	}

	rotaService := service.NewRotaService(rosterRepo, exporter, notifier, logger)

	// Ctrl+C aborts the solve; the solver returns its best schedule so far.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := rotaService.Generate(ctx, service.GenerateRequest{
		RulesPath:     cfg.RulesPath,
		OverridesPath: cfg.OverridesPath,
		PolicyPath:    cfg.PolicyPath,
		OutputDir:     cfg.OutputDir,
		StartDate:     cfg.StartDate,
		Weeks:         cfg.Weeks,
		TimeLimit:     cfg.SolveTimeLimit,
		Seed:          cfg.SolveSeed,
	})
	if err != nil {
		logger.WithError(err).Fatal("Rota generation failed")
	}

	logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"status": result.Status,
		"file":   result.FilePath,
		"slack":  result.SlackDays(),
	}).Info("Rota generation finished")

	if err := sqlDB.Close(); err != nil {
		logger.Infof("Error closing database: %v", err)
	}
}
