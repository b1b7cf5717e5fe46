package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-diary/config"
	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/infrastructure/rabbitmq"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
	"github.com/oksasatya/go-ddd-diary/pkg/mailer"
	"github.com/oksasatya/go-ddd-diary/pkg/mailer/templates"
)

// activity_worker consumes session activity from RabbitMQ and emails a
// sign-in notice to the account owner.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-activity-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; activity worker disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQActivityQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid DIARY_TIMEZONE: %v", err)
	}
	mg, err := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	if err != nil {
		log.Fatalf("mailgun: %v", err)
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQActivityQueue, 16)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer consumer.Close()
	deliveries, err := consumer.Deliveries(cfg.AppName + "-activity-worker")
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brand := templates.Brand{
		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,
		AppURL:      cfg.AppURL,
		LogoURL:     cfg.LogoURL,
		SupportURL:  cfg.SupportURL,
	}
	notifier := application.NewActivityNotifier(mg, brand, loc, logger)
	logger.WithField("queue", cfg.RabbitMQActivityQueue).Info("activity worker started")
	rabbitmq.NewConsumer(notifier.Handle, logger).Run(ctx, deliveries)
	logger.Info("activity worker stopped")
}
