// The notifier consumes payment events and mails a receipt to the
// student. Delivery is best-effort; the payment is already committed by
// the time an event arrives.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/hostelpay/go-hostel-fee-system/shared/config"
	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
	"github.com/hostelpay/go-hostel-fee-system/shared/mailer"
)

const paymentTopic = "payment-completed"

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg := config.Load()

	sesMailer, err := mailer.NewSESMailer(cfg.AWSRegion, cfg.MailSender)
	if err != nil {
		log.Fatal("Failed to initialize SES mailer:", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          paymentTopic,
		GroupID:        "notifier-service",
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logrus.Info("Notifier started, consuming payment events")
	for {
		select {
		case <-stop:
			logrus.Info("Notifier shutting down")
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		msg, err := reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			// Timeouts just mean no messages were available.
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logrus.WithError(err).Error("Error reading payment event")
			time.Sleep(time.Second)
			continue
		}

		var event ledger.PaymentEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logrus.WithError(err).Error("Malformed payment event, skipping")
			continue
		}

		if event.StudentEmail == "" {
			logrus.WithField("transaction_id", event.TransactionID).
				Warn("Payment event has no student email, skipping receipt")
			continue
		}

		if err := mailer.SendPaymentReceipt(sesMailer, event.StudentEmail, event.StudentName, event.TransactionID, event.Amount); err != nil {
			logrus.WithError(err).WithField("transaction_id", event.TransactionID).
				Error("Failed to send payment receipt")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"transaction_id": event.TransactionID,
			"student":        event.StudentName,
		}).Info("Payment receipt sent")
	}
}
