package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
)

func TestKafkaProducer_PublishAfterCloseDropsEvent(t *testing.T) {
	kp := NewKafkaProducer("localhost:9092")
	require.NoError(t, kp.Close())

	// A request finishing mid-shutdown must get an error back, not a
	// panic on a closed channel.
	err := kp.PublishPaymentCompleted(ledger.PaymentEvent{TransactionID: "TXN1"})
	assert.Error(t, err)
}
