package service

import (
	"context"
	"fmt"
	"log"

	"github.com/rmallick/credit-ledger/internal/models"
)

// Consumer delivers posted movements from the queue.
type Consumer interface {
	ConsumeMovements(ctx context.Context) (<-chan models.Transaction, error)
}

// Archive mirrors posted movements into the audit store.
type Archive interface {
	ArchiveTransaction(ctx context.Context, tx *models.Transaction) error
}

// MovementArchiver drains the posted-movement queue into the archive.
type MovementArchiver struct {
	consumer Consumer
	archive  Archive
}

func NewMovementArchiver(consumer Consumer, archive Archive) *MovementArchiver {
	return &MovementArchiver{
		consumer: consumer,
		archive:  archive,
	}
}

// Start consumes posted movements and mirrors them into the archive until
// the context is cancelled.
func (a *MovementArchiver) Start(ctx context.Context) error {
	txChan, err := a.consumer.ConsumeMovements(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume movements: %w", err)
	}

	// archiving movements in a goroutine
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tx, ok := <-txChan:
				if !ok {
					return
				}

				if err := a.archive.ArchiveTransaction(ctx, &tx); err != nil {
					log.Printf("Failed to archive movement %d: %v", tx.ID, err)
				} else {
					log.Printf("Archived movement %d for account %s", tx.ID, tx.AccountID)
				}
			}
		}
	}()

	return nil
}
