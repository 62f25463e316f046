package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dashmail/internal/api"
	"github.com/dashmail/internal/capture"
	"github.com/dashmail/internal/config"
	"github.com/dashmail/internal/cronwin"
	"github.com/dashmail/internal/database"
	"github.com/dashmail/internal/delivery"
	"github.com/dashmail/internal/notify"
	"github.com/dashmail/internal/queue"
	"github.com/dashmail/internal/report"
	"github.com/dashmail/internal/scheduler"
	"github.com/dashmail/internal/session"
	"github.com/dashmail/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	schedules := store.New(db)

	// Browser side: authenticated session -> rendered page -> screenshot.
	auth := session.New(cfg.WebDriver.BaseURL, cfg.WebDriver.SessionCookie,
		cfg.Reports.User, cfg.Reports.Password)

	driver, err := capture.NewRodDriver(cfg.WebDriver.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create browser driver: %v", err)
	}

	engine := capture.NewEngine(driver, auth, capture.Config{
		BaseURL:         cfg.WebDriver.BaseURL,
		WelcomePath:     cfg.WebDriver.WelcomePath,
		RenderWait:      cfg.RenderWait(),
		DashboardWindow: cfg.WebDriver.Window.Dashboard,
		SliceWindow:     cfg.WebDriver.Window.Slice,
	})

	// Mail side: captured artifact -> MIME content -> SMTP.
	formatter, err := report.NewFormatter(cfg.SMTP.From)
	if err != nil {
		log.Fatalf("Failed to create formatter: %v", err)
	}

	mailer := delivery.New(delivery.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		Bcc:        cfg.Reports.BccAddress,
		RatePerSec: cfg.SMTP.RatePerSec,
	})

	notifier := notify.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel)

	runner := delivery.NewRunner(schedules, engine, formatter, mailer, notifier,
		cfg.WebDriver.BaseURL, cfg.Reports.SubjectPrefix)

	taskQueue := queue.New(queue.Config{
		Workers:     cfg.Queue.Workers,
		QueueSize:   cfg.Queue.QueueSize,
		TaskTimeout: cfg.TaskTimeout(),
	})

	dispatcher := scheduler.NewDispatcher(schedules, taskQueue, cronwin.New(), runner)
	ticker := scheduler.NewTicker(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskQueue.Start(ctx)
	defer taskQueue.Stop()

	ticker.Start(ctx)
	defer ticker.Stop()

	server := api.NewServer(schedules, taskQueue, runner, cfg.Server.JWTSecret)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("Received %v, shutting down", sig)
	case err := <-errCh:
		log.Errorf("API server stopped: %v", err)
	}

	cancel()

	// Give in-flight deliveries a moment to finish before the deferred
	// Stop calls tear the queue down.
	time.Sleep(2 * time.Second)
}
