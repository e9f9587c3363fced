package job

import (
	"context"
	"errors"
	"log"
	"time"

	"tokenledger/internal/config"
	"tokenledger/internal/repository"
	"tokenledger/internal/service"

	"gorm.io/gorm"
)

const (
	reaperScanInterval = time.Minute
	reaperBatchSize    = 50
)

// GenerationReaper settles generations abandoned in processing: a worker
// that crashed after the debit leaves a processing row behind, and the
// user has paid for nothing. After the timeout the reaper fails the
// generation, which refunds its cost through the normal compensation
// path. The exactly-once status flip keeps the reaper and a slow worker
// from both settling the same row.
type GenerationReaper struct {
	generationRepo *repository.GenerationRepository
	generations    *service.GenerationService
	timeout        time.Duration
}

func NewGenerationReaper(db *gorm.DB, cfg *config.Config, generations *service.GenerationService) *GenerationReaper {
	return &GenerationReaper{
		generationRepo: repository.NewGenerationRepository(db),
		generations:    generations,
		timeout:        time.Duration(cfg.Business.GenerationTimeoutMinutes) * time.Minute,
	}
}

// Start runs the reap loop until ctx is cancelled.
func (r *GenerationReaper) Start(ctx context.Context) {
	log.Println("[GenerationReaper] started")
	ticker := time.NewTicker(reaperScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[GenerationReaper] stopped")
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *GenerationReaper) reap(ctx context.Context) {
	cutoff := time.Now().Add(-r.timeout)
	stuck, err := r.generationRepo.ListStuckProcessing(ctx, cutoff, reaperBatchSize)
	if err != nil {
		log.Printf("[GenerationReaper] failed to list stuck generations: %v", err)
		return
	}

	for _, gen := range stuck {
		if err := r.generations.Fail(ctx, gen.ID, "generation timed out"); err != nil {
			// ErrGenerationNotFound here means a worker finished it
			// between the scan and the flip; nothing to do.
			if !errors.Is(err, repository.ErrGenerationNotFound) {
				log.Printf("[GenerationReaper] failed to settle generation %d: %v", gen.ID, err)
			}
			continue
		}
		log.Printf("[GenerationReaper] refunded timed-out generation %d (account %d)", gen.ID, gen.AccountID)
	}
}
