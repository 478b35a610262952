package services

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/tropicaldog17/folio/internal/errors"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/repositories"
)

// transactionService implements the TransactionService interface
type transactionService struct {
	repo repositories.TransactionRepository
}

// NewTransactionService creates a new transaction service
func NewTransactionService(repo repositories.TransactionRepository) TransactionService {
	return &transactionService{repo: repo}
}

// prepare normalizes and validates a transaction before it is stored.
func prepare(tx *models.Transaction) error {
	if tx == nil {
		return &apperrors.ErrValidation{Field: "transaction", Message: "is required"}
	}
	tx.Normalize()
	if err := tx.Validate(); err != nil {
		return &apperrors.ErrValidation{Field: "transaction", Message: err.Error()}
	}
	return nil
}

// CreateTransaction records a new ledger entry
func (s *transactionService) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := prepare(tx); err != nil {
		return err
	}
	return s.repo.Create(ctx, tx)
}

// CreateTransactionsBatch records several entries atomically. Nothing is
// stored if any entry is invalid.
func (s *transactionService) CreateTransactionsBatch(ctx context.Context, txs []*models.Transaction) ([]*models.Transaction, error) {
	for i, tx := range txs {
		if err := prepare(tx); err != nil {
			var verr *apperrors.ErrValidation
			if errors.As(err, &verr) {
				verr.Field = fmt.Sprintf("transactions[%d]", i)
			}
			return nil, err
		}
	}
	return s.repo.CreateBatch(ctx, txs)
}

func (s *transactionService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *transactionService) ListTransactions(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error) {
	return s.repo.List(ctx, filter)
}

func (s *transactionService) DeleteTransaction(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *transactionService) GetTransactionCount(ctx context.Context, filter *models.TransactionFilter) (int, error) {
	return s.repo.GetCount(ctx, filter)
}
