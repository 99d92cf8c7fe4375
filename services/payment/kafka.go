package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
)

const paymentTopic = "payment-completed"

// KafkaProducer publishes payment events through a worker pool so the
// request path never blocks on the broker.
type KafkaProducer struct {
	writer       *kafka.Writer
	eventChan    chan ledger.PaymentEvent
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
}

// NewKafkaProducer creates a producer with its worker pool started.
func NewKafkaProducer(broker string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	kp := &KafkaProducer{
		writer:       writer,
		eventChan:    make(chan ledger.PaymentEvent, 1000),
		workerCount:  4,
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < kp.workerCount; i++ {
		kp.wg.Add(1)
		go kp.eventWorker(i)
	}
	logrus.Infof("Kafka producer started with %d workers", kp.workerCount)

	return kp
}

func (kp *KafkaProducer) eventWorker(id int) {
	defer kp.wg.Done()

	for {
		select {
		case event := <-kp.eventChan:
			if err := kp.sendSync(event); err != nil {
				logrus.WithError(err).WithField("worker", id).
					Error("Failed to publish payment event")
			}
		case <-kp.shutdownChan:
			return
		}
	}
}

// PublishPaymentCompleted queues an event without blocking. A full queue
// or a closed producer drops the event; the payment itself is already
// committed and receipt delivery is best-effort.
func (kp *KafkaProducer) PublishPaymentCompleted(event ledger.PaymentEvent) error {
	select {
	case <-kp.shutdownChan:
		return fmt.Errorf("producer closed, event dropped")
	default:
	}
	select {
	case kp.eventChan <- event:
		return nil
	default:
		return fmt.Errorf("payment event queue full, event dropped")
	}
}

func (kp *KafkaProducer) sendSync(event ledger.PaymentEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}

	msg := kafka.Message{
		Topic: paymentTopic,
		Key:   []byte(event.ConsultancyID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("payment_completed")},
			{Key: "transaction_id", Value: []byte(event.TransactionID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write payment event: %w", err)
	}
	return nil
}

// Close stops the workers and closes the writer. The event channel is
// left open so a publish racing the shutdown drops the event instead of
// panicking on a closed channel.
func (kp *KafkaProducer) Close() error {
	close(kp.shutdownChan)
	kp.wg.Wait()
	return kp.writer.Close()
}
