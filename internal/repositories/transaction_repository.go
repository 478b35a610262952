package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/models"
)

// ErrNotFound is returned when a lookup by key matches nothing.
var ErrNotFound = errors.New("record not found")

type transactionRepository struct {
	db *db.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(database *db.DB) TransactionRepository {
	return &transactionRepository{db: database}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) CreateBatch(ctx context.Context, txs []*models.Transaction) ([]*models.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range txs {
			if t == nil {
				return fmt.Errorf("nil transaction in batch")
			}
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if err := tx.Create(t).Error; err != nil {
				return fmt.Errorf("failed to create transaction: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	return txs, nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}

	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

func (r *transactionRepository) applyFilter(query *gorm.DB, filter *models.TransactionFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", models.DateOnly(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", models.DateOnly(*filter.EndDate))
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if len(filter.Tickers) > 0 {
		query = query.Where("ticker IN ?", filter.Tickers)
	}
	return query
}

// List returns transactions oldest first, the order the engine consumes them.
func (r *transactionRepository) List(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.Transaction{}), filter)
	query = query.Order("date ASC, created_at ASC, id ASC")

	if filter != nil && filter.Limit > 0 {
		query = query.Limit(filter.Limit)
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
	}

	var transactions []*models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, nil
}

func (r *transactionRepository) GetCount(ctx context.Context, filter *models.TransactionFilter) (int, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.Transaction{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return int(count), nil
}

func (r *transactionRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Transaction{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	return nil
}

// ListTickers returns the distinct tickers that were traded.
func (r *transactionRepository) ListTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("type IN ?", []models.TransactionType{models.TransactionBuy, models.TransactionSell}).
		Distinct("ticker").Order("ticker").Pluck("ticker", &tickers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction tickers: %w", err)
	}
	return tickers, nil
}

func (r *transactionRepository) ListCurrencies(ctx context.Context) ([]string, error) {
	var currencies []string
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Distinct("currency").Order("currency").Pluck("currency", &currencies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction currencies: %w", err)
	}
	return currencies, nil
}
