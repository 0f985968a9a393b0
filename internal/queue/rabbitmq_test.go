package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAcknowledger records ack/reject outcomes for deliveries.
type fakeAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	rejected map[uint64]bool // tag -> requeue
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{rejected: make(map[uint64]bool)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	return a.Reject(tag, requeue)
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected[tag] = requeue
	return nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, tx models.Transaction) amqp.Delivery {
	t.Helper()

	body, err := json.Marshal(tx)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func TestPumpMovementsDeliversAndAcks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ack := newFakeAcknowledger()
	msgs := make(chan amqp.Delivery, 2)
	txChan := make(chan models.Transaction)

	tx := models.Transaction{
		ID:              1,
		AccountID:       "acc-1",
		OperationTypeID: models.Payment,
		Amount:          decimal.RequireFromString("10.00"),
		EventDate:       time.Now().UTC(),
	}
	msgs <- delivery(t, ack, 1, tx)

	go pumpMovements(ctx, msgs, txChan)

	got := <-txChan
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "10.00", got.Amount.StringFixed(2))

	// ack lands after the receiver has taken the movement
	deadline := time.After(2 * time.Second)
	for {
		ack.mu.Lock()
		n := len(ack.acked)
		ack.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("delivery was never acked")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPumpMovementsRejectsMalformed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ack := newFakeAcknowledger()
	msgs := make(chan amqp.Delivery, 1)
	txChan := make(chan models.Transaction)

	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: []byte("{not json")}
	close(msgs)

	done := make(chan struct{})
	go func() {
		pumpMovements(ctx, msgs, txChan)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not exit after the delivery channel closed")
	}
	cancel()

	ack.mu.Lock()
	defer ack.mu.Unlock()
	requeue, rejected := ack.rejected[7]
	assert.True(t, rejected)
	assert.False(t, requeue, "malformed messages must not be requeued")
}

// Cancelling the context while the receiver is gone must not wedge the pump
// on the channel send; the in-flight movement is requeued instead.
func TestPumpMovementsCancelDuringSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ack := newFakeAcknowledger()
	msgs := make(chan amqp.Delivery, 1)
	txChan := make(chan models.Transaction) // nobody ever receives

	tx := models.Transaction{
		ID:              9,
		AccountID:       "acc-1",
		OperationTypeID: models.Purchase,
		Amount:          decimal.RequireFromString("-5.00"),
	}
	msgs <- delivery(t, ack, 9, tx)

	done := make(chan struct{})
	go func() {
		pumpMovements(ctx, msgs, txChan)
		close(done)
	}()

	// give the pump time to block on the send, then cancel
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump blocked on send after cancellation")
	}

	ack.mu.Lock()
	defer ack.mu.Unlock()
	requeue, rejected := ack.rejected[9]
	assert.True(t, rejected)
	assert.True(t, requeue, "in-flight movement must be requeued on shutdown")
	assert.Empty(t, ack.acked)
}
