package job

import (
	"context"
	"log"
	"time"

	"tokenledger/internal/config"
	"tokenledger/internal/infrastructure/mq"
	"tokenledger/internal/model"
	"tokenledger/internal/repository"

	"gorm.io/gorm"
)

const (
	outboxScanInterval = 5 * time.Second
	outboxBatchSize    = 100
)

// OutboxSender relays pending outbox rows to Kafka. Delivery is
// at-least-once: a row is marked SENT only after the broker acks, so a
// crash between send and mark replays the message.
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	maxRetryCount int
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		maxRetryCount: cfg.Business.MaxRetryCount,
	}
}

// Start runs the relay loop until ctx is cancelled.
func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] started")
	ticker := time.NewTicker(outboxScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.processBatch(ctx)
		}
	}
}

func (s *OutboxSender) processBatch(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, outboxBatchSize)
	if err != nil {
		log.Printf("[OutboxSender] failed to load pending messages: %v", err)
		return
	}

	for _, msg := range messages {
		if err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload); err != nil {
			log.Printf("[OutboxSender] send failed for message %d: %v", msg.ID, err)
			if msg.RetryCount+1 >= s.maxRetryCount {
				if ferr := s.outboxRepo.MarkAsFailed(ctx, msg.ID); ferr != nil {
					log.Printf("[OutboxSender] failed to mark message %d as failed: %v", msg.ID, ferr)
				}
			} else {
				if ierr := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); ierr != nil {
					log.Printf("[OutboxSender] failed to bump retry count for message %d: %v", msg.ID, ierr)
				}
			}
			continue
		}
		if err := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); err != nil {
			log.Printf("[OutboxSender] failed to mark message %d as sent: %v", msg.ID, err)
		}
	}
}
