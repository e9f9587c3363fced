package service

import (
	"context"
	"fmt"

	"tokenledger/internal/config"
	"tokenledger/internal/model"
	"tokenledger/internal/repository"

	"gorm.io/gorm"
)

// Generator performs the actual generation work for a started request
// and returns a reference to the result. Implementations talk to the
// external model backend; the saga around them only cares whether they
// returned an error.
type Generator interface {
	Generate(ctx context.Context, gen *model.Generation) (resultURL string, err error)
}

// StartRequest describes one paid generation to begin.
type StartRequest struct {
	AccountID int64
	Kind      model.GenerationKind
	Prompt    string
	Preset    *string
	FileID    string
}

// GenerationService runs the debit-work-settle saga. Start debits the
// account and opens a processing record in one database transaction; the
// external work happens outside any transaction; Fail flips the record
// terminal and refunds atomically. A generation is therefore never both
// refunded and completed, and a crashed worker leaves a processing row
// the reaper can settle later.
type GenerationService struct {
	db             *gorm.DB
	ledger         *LedgerService
	pricing        *PricingResolver
	accountRepo    *repository.AccountRepository
	generationRepo *repository.GenerationRepository
}

func NewGenerationService(db *gorm.DB, cfg *config.Config, ledger *LedgerService) *GenerationService {
	return &GenerationService{
		db:             db,
		ledger:         ledger,
		pricing:        NewPricingResolver(&cfg.Business),
		accountRepo:    repository.NewAccountRepository(db),
		generationRepo: repository.NewGenerationRepository(db),
	}
}

// Start prices the request against the account's balances, debits, and
// creates the processing generation, all in one transaction. Returns
// repository.ErrInsufficientBalance (and debits nothing) when no balance
// can cover the cost.
func (s *GenerationService) Start(ctx context.Context, req StartRequest) (*model.Generation, error) {
	var gen *model.Generation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByID(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}

		var (
			quote PriceQuote
			ok    bool
		)
		tier := account.SelectedTier
		if req.Kind == model.GenKindAnimate {
			quote, ok = s.pricing.ResolveAnimate(account)
			tier = ""
		} else {
			quote, ok = s.pricing.Resolve(account, tier)
		}
		if !ok {
			return repository.ErrInsufficientBalance
		}

		payload := map[string]interface{}{
			"kind": string(req.Kind),
			"tier": tier,
		}
		if req.Prompt != "" {
			payload["prompt"] = req.Prompt
		}
		if req.Preset != nil {
			payload["preset"] = *req.Preset
		}
		if req.FileID != "" {
			payload["file_id"] = req.FileID
		}
		if _, err := s.ledger.debitTx(ctx, tx, req.AccountID, quote.Delta(), string(req.Kind), payload); err != nil {
			return err
		}

		gen = &model.Generation{
			AccountID:    req.AccountID,
			Kind:         req.Kind,
			Tier:         tier,
			Prompt:       req.Prompt,
			Preset:       req.Preset,
			Status:       model.GenStatusProcessing,
			CostDiamonds: quote.Diamonds,
			CostBananas:  quote.Bananas,
		}
		return s.generationRepo.Create(ctx, tx, gen)
	})
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// Complete finishes a processing generation with its result. The debit
// stands. A second settlement attempt on the same generation returns
// repository.ErrGenerationNotFound.
func (s *GenerationService) Complete(ctx context.Context, id int64, resultURL string) error {
	return s.generationRepo.MarkCompleted(ctx, id, resultURL)
}

// Fail finishes a processing generation as failed and refunds its full
// cost, both in one transaction. The status predicate on the flip makes
// the refund exactly-once: a retried Fail on an already-terminal
// generation refunds nothing.
func (s *GenerationService) Fail(ctx context.Context, id int64, errMsg string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		gen, err := s.generationRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.generationRepo.MarkFailed(ctx, tx, id, errMsg); err != nil {
			return err
		}
		cost := gen.Cost()
		if cost.IsZero() {
			return nil
		}
		_, err = s.ledger.refundTx(ctx, tx, gen.AccountID, cost, string(gen.Kind), map[string]interface{}{
			"generation_id": gen.ID,
			"reason":        errMsg,
		})
		return err
	})
}

// Run executes the full saga: debit and open via Start, do the work, and
// settle. Any generator error (or panic surfaced as an error by the
// caller) ends in Fail, so the user is never charged for work that
// produced nothing.
func (s *GenerationService) Run(ctx context.Context, req StartRequest, generator Generator) (*model.Generation, error) {
	gen, err := s.Start(ctx, req)
	if err != nil {
		return nil, err
	}

	resultURL, genErr := generator.Generate(ctx, gen)
	if genErr != nil {
		if failErr := s.Fail(ctx, gen.ID, genErr.Error()); failErr != nil {
			return gen, fmt.Errorf("generation failed (%v), refund also failed: %w", genErr, failErr)
		}
		return gen, genErr
	}

	if err := s.Complete(ctx, gen.ID, resultURL); err != nil {
		return gen, err
	}
	gen.Status = model.GenStatusCompleted
	gen.ResultURL = resultURL
	return gen, nil
}

func (s *GenerationService) Get(ctx context.Context, id int64) (*model.Generation, error) {
	return s.generationRepo.GetByID(ctx, nil, id)
}
