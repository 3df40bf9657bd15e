package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/astrasemi/assistant/internal/config"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	if err := applog.Init(!cfg.IsRelease()); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer applog.Sync()

	if cfg.RabbitMQ.DSN == "" || cfg.SMTP.Host == "" || cfg.NotifyAdminEmail == "" {
		applog.Log.Fatal("RABBITMQ_DSN, SMTP_HOST and NOTIFY_ADMIN_EMAIL are required")
	}

	// Mail client
	opts := []mail.Option{
		mail.WithPort(cfg.SMTP.Port),
		mail.WithTimeout(cfg.SMTP.DialTimeout),
	}
	if cfg.SMTP.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTP.Username),
			mail.WithPassword(cfg.SMTP.Password),
		)
	}
	if cfg.SMTP.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	client, err := mail.NewClient(cfg.SMTP.Host, opts...)
	if err != nil {
		applog.Log.Fatal("Failed to create mail client", zap.Error(err))
	}

	from := cfg.SMTP.From
	if from == "" {
		from = cfg.SMTP.Username
	}
	mailer := notify.NewMailer(client, from, cfg.NotifyAdminEmail)

	// RabbitMQ
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		applog.Log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		applog.Log.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
	}
	defer ch.Close()

	if err := notify.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
		applog.Log.Fatal("Failed to declare notification queue", zap.Error(err))
	}
	// one unacknowledged delivery at a time
	if err := ch.Qos(1, 0, false); err != nil {
		applog.Log.Fatal("Failed to set prefetch", zap.Error(err))
	}

	deliveries, err := ch.Consume(
		cfg.RabbitMQ.Queue,
		"",    // consumer tag assigned by the broker
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		applog.Log.Fatal("Failed to consume notification queue", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		consume(ctx, mailer, deliveries)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	applog.Log.Info("Mailer started", zap.String("queue", cfg.RabbitMQ.Queue))

	<-quit
	applog.Log.Info("Shutting down mailer")
	cancel()
	wg.Wait()
	applog.Log.Info("Mailer exited")
}

// consume settles every delivery according to the mailer's outcome
func consume(ctx context.Context, mailer *notify.Mailer, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				applog.Log.Warn("Delivery channel closed")
				return
			}

			var err error
			switch mailer.Handle(ctx, d.Body) {
			case notify.Ack:
				err = d.Ack(false)
			case notify.Reject:
				err = d.Nack(false, false)
			case notify.Requeue:
				err = d.Nack(false, true)
			}
			if err != nil {
				applog.Log.Error("Failed to settle delivery", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
			}
		}
	}
}
