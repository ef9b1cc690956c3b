package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms/cache"
	"lms/config"
	"lms/database"
	"lms/logger"
	"lms/repos"
	"lms/routers"
	"lms/services"
	"lms/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLog.Sync()

	db, err := database.ConnectDb(cfg, appLog)
	if err != nil {
		appLog.Fatal("database connection failed", "error", err)
	}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisStore, err := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, appLog)
		if err != nil {
			appLog.Warn("redis unavailable, using in-memory cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer redisStore.Close()
			store = redisStore
		}
	}

	var channels []utils.Channel
	if cfg.SendgridAPIKey != "" {
		directory := utils.NewRepoDirectory(
			repos.NewUserRepo(db, appLog),
			repos.NewCourseRepo(db, appLog),
			repos.NewQuizRepo(db, appLog),
		)
		email, err := utils.NewEmailChannel(cfg.SendgridAPIKey, cfg.EmailSender, cfg.EmailSenderName, directory, appLog)
		if err != nil {
			appLog.Warn("email notifications disabled", "error", err)
		} else {
			channels = append(channels, email)
		}
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, utils.NewWebhookChannel(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout, appLog))
	}

	dispatcher := utils.NewDispatcher(appLog, cfg.WebhookTimeout*3, channels...)
	svc := services.New(db, cfg, appLog, services.Options{
		Cache:    store,
		Notifier: dispatcher,
	})

	scheduler, err := utils.InitializeAttemptScheduler(cfg.AttemptSweepSpec, time.Minute, svc.Attempts, appLog)
	if err != nil {
		appLog.Fatal("attempt scheduler failed", "error", err)
	}

	app := routers.NewApp(cfg, appLog, svc)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		appLog.Info("shutting down")
		<-scheduler.Stop().Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			appLog.Error("server shutdown failed", "error", err)
		}
	}()

	appLog.Info("Server is running", "port", cfg.Port, "env", cfg.AppEnv, "driver", cfg.DBDriver)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Fatal("server stopped", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.WebhookTimeout*3)
	defer cancel()
	if err := dispatcher.Close(ctx); err != nil {
		appLog.Warn("notifications still pending at exit", "error", err)
	}
}
