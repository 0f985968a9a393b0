package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/streadway/amqp"
)

// MovementQueue is the durable queue carrying posted movements.
const MovementQueue = "posted-movements"

// RabbitMQ carries posted movements between the API and the processor.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewRabbitMQ(uri string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// durable, not auto-deleted: movements must survive broker restarts
	q, err := ch.QueueDeclare(MovementQueue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// PublishMovement publishes a posted transaction to the queue. Events are
// emitted after the database commit, so consumers only ever see movements
// that exist in the ledger.
func (r *RabbitMQ) PublishMovement(ctx context.Context, tx *models.Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal movement: %w", err)
	}

	err = r.channel.Publish(
		"",            // default exchange
		MovementQueue, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// ConsumeMovements delivers posted movements until the context is cancelled.
// Messages are acked only after the receiver has taken them; a movement left
// in flight at shutdown is requeued for the next consumer.
func (r *RabbitMQ) ConsumeMovements(ctx context.Context) (<-chan models.Transaction, error) {
	msgs, err := r.channel.Consume(
		MovementQueue,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	txChan := make(chan models.Transaction)
	go pumpMovements(ctx, msgs, txChan)

	return txChan, nil
}

// pumpMovements decodes deliveries onto txChan until the context is
// cancelled or the broker closes the delivery channel. Every exit path
// settles the in-flight message so nothing is left unacked.
func pumpMovements(ctx context.Context, msgs <-chan amqp.Delivery, txChan chan<- models.Transaction) {
	defer close(txChan)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var tx models.Transaction
			if err := json.Unmarshal(msg.Body, &tx); err != nil {
				log.Printf("Failed to unmarshal movement: %v", err)
				msg.Reject(false) // malformed, don't requeue
				continue
			}

			select {
			case <-ctx.Done():
				// receiver is gone; requeue so the movement is not lost
				msg.Reject(true)
				return
			case txChan <- tx:
			}

			msg.Ack(false)
		}
	}
}
