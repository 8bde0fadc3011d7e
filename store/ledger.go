// Package store is the single source of truth for the two ledger stages.
// Every read-then-write mutation runs inside a database transaction so
// multiple server instances can operate on the same tables.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Duduxlll/banca-xand/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("invalid status")
)

type LedgerStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db, now: time.Now}
}

func (s *LedgerStore) ListBancas(ctx context.Context) ([]models.Banca, error) {
	var bancas []models.Banca
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&bancas).Error
	return bancas, err
}

// InsertBanca appends a stage-1 record. Nome is truncated to the column
// width; BancaCents starts unset.
func (s *LedgerStore) InsertBanca(ctx context.Context, nome string, depositoCents int64, pixType, pixKey *string) (*models.Banca, error) {
	banca := models.Banca{
		ID:            models.NewID(),
		Nome:          models.TruncateNome(nome),
		DepositoCents: depositoCents,
		PixType:       pixType,
		PixKey:        pixKey,
		CreatedAt:     s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&banca).Error; err != nil {
		return nil, err
	}
	return &banca, nil
}

func (s *LedgerStore) UpdateBancaAmount(ctx context.Context, id string, bancaCents int64) (*models.Banca, error) {
	res := s.db.WithContext(ctx).Model(&models.Banca{}).
		Where("id = ?", id).
		Update("banca_cents", bancaCents)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var banca models.Banca
	if err := s.db.WithContext(ctx).First(&banca, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &banca, nil
}

func (s *LedgerStore) DeleteBanca(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Banca{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Promote atomically moves a banca into pagamentos. The carried amount is
// the explicit non-negative override when given, else the current positive
// BancaCents, else the original deposit. Insert and delete commit together;
// any failure leaves the banca solely in place.
func (s *LedgerStore) Promote(ctx context.Context, id string, overrideCents *int64) (*models.Pagamento, error) {
	var pagamento models.Pagamento
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// SQLite has no FOR UPDATE; there the pagamentos primary-key
		// conflict plus the delete row-count guard below serialize racing
		// promotions instead.
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var banca models.Banca
		if err := q.First(&banca, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		amount := banca.DepositoCents
		if banca.BancaCents != nil && *banca.BancaCents > 0 {
			amount = *banca.BancaCents
		}
		if overrideCents != nil && *overrideCents >= 0 {
			amount = *overrideCents
		}

		pagamento = models.Pagamento{
			ID:             banca.ID,
			Nome:           banca.Nome,
			PagamentoCents: amount,
			PixType:        banca.PixType,
			PixKey:         banca.PixKey,
			Status:         models.StatusNaoPago,
			CreatedAt:      banca.CreatedAt,
		}
		if err := tx.Create(&pagamento).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Banca{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pagamento, nil
}

func (s *LedgerStore) ListPagamentos(ctx context.Context) ([]models.Pagamento, error) {
	var pagamentos []models.Pagamento
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&pagamentos).Error
	return pagamentos, err
}

// UpdatePagamentoStatus flips the payout flag. "pago" stamps PaidAt with the
// current time, "nao_pago" clears it, anything else is rejected.
func (s *LedgerStore) UpdatePagamentoStatus(ctx context.Context, id, status string) (*models.Pagamento, error) {
	if status != models.StatusPago && status != models.StatusNaoPago {
		return nil, ErrInvalidStatus
	}

	var paidAt *time.Time
	if status == models.StatusPago {
		now := s.now()
		paidAt = &now
	}

	res := s.db.WithContext(ctx).Model(&models.Pagamento{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "paid_at": paidAt})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var pagamento models.Pagamento
	if err := s.db.WithContext(ctx).First(&pagamento, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pagamento, nil
}

func (s *LedgerStore) DeletePagamento(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Pagamento{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
