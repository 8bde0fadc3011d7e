package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Duduxlll/banca-xand/config"
	"github.com/Duduxlll/banca-xand/models"
)

func newTestStore(t *testing.T) *LedgerStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	return NewLedgerStore(db)
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func TestInsertAndListBancas(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	first, err := s.InsertBanca(ctx, "Maria", 1500, strPtr("email"), strPtr("maria@x.com"))
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Minute) }
	second, err := s.InsertBanca(ctx, "João", 2000, nil, nil)
	require.NoError(t, err)

	bancas, err := s.ListBancas(ctx)
	require.NoError(t, err)
	require.Len(t, bancas, 2)
	assert.Equal(t, second.ID, bancas[0].ID, "newest banca listed first")
	assert.Equal(t, first.ID, bancas[1].ID)
	assert.Equal(t, "Maria", bancas[1].Nome)
	assert.Equal(t, "email", *bancas[1].PixType)
	assert.Nil(t, bancas[1].BancaCents)
}

func TestInsertBancaTruncatesNome(t *testing.T) {
	s := newTestStore(t)

	long := ""
	for i := 0; i < 200; i++ {
		long += "á"
	}
	banca, err := s.InsertBanca(context.Background(), long, 1000, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NomeMaxLen, len([]rune(banca.Nome)))
}

func TestUpdateBancaAmount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	banca, err := s.InsertBanca(ctx, "Maria", 1500, nil, nil)
	require.NoError(t, err)

	updated, err := s.UpdateBancaAmount(ctx, banca.ID, 2500)
	require.NoError(t, err)
	require.NotNil(t, updated.BancaCents)
	assert.Equal(t, int64(2500), *updated.BancaCents)
	assert.Equal(t, int64(1500), updated.DepositoCents, "deposit amount stays untouched")

	_, err = s.UpdateBancaAmount(ctx, "missing", 2500)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBanca(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	banca, err := s.InsertBanca(ctx, "Maria", 1500, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteBanca(ctx, banca.ID))
	assert.ErrorIs(t, s.DeleteBanca(ctx, banca.ID), ErrNotFound)
}

func TestPromoteAmountSelection(t *testing.T) {
	tests := []struct {
		name       string
		bancaCents *int64
		override   *int64
		want       int64
	}{
		{"deposit when nothing else set", nil, nil, 1500},
		{"banca amount beats deposit", int64Ptr(2000), nil, 2000},
		{"zero banca amount ignored", int64Ptr(0), nil, 1500},
		{"override beats banca amount", int64Ptr(2000), int64Ptr(3000), 3000},
		{"zero override honored", int64Ptr(2000), int64Ptr(0), 0},
		{"negative override ignored", int64Ptr(2000), int64Ptr(-5), 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()

			banca, err := s.InsertBanca(ctx, "Maria", 1500, strPtr("cpf"), strPtr("52998224725"))
			require.NoError(t, err)
			if tt.bancaCents != nil {
				_, err = s.UpdateBancaAmount(ctx, banca.ID, *tt.bancaCents)
				require.NoError(t, err)
			}

			pagamento, err := s.Promote(ctx, banca.ID, tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pagamento.PagamentoCents)
		})
	}
}

func TestPromoteMovesRecordAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	banca, err := s.InsertBanca(ctx, "Maria", 1500, strPtr("email"), strPtr("maria@x.com"))
	require.NoError(t, err)

	pagamento, err := s.Promote(ctx, banca.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, banca.ID, pagamento.ID, "identity carries over")
	assert.WithinDuration(t, banca.CreatedAt, pagamento.CreatedAt, time.Second, "deposit time carries over")
	assert.Equal(t, models.StatusNaoPago, pagamento.Status)
	assert.Equal(t, "maria@x.com", *pagamento.PixKey)

	bancas, err := s.ListBancas(ctx)
	require.NoError(t, err)
	assert.Empty(t, bancas, "promoted banca leaves stage one")

	pagamentos, err := s.ListPagamentos(ctx)
	require.NoError(t, err)
	assert.Len(t, pagamentos, 1)
}

func TestPromoteMissingBanca(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Promote(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPromoteTwiceLeavesSinglePagamento(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	banca, err := s.InsertBanca(ctx, "Maria", 1500, nil, nil)
	require.NoError(t, err)

	_, err = s.Promote(ctx, banca.ID, nil)
	require.NoError(t, err)

	_, err = s.Promote(ctx, banca.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	pagamentos, err := s.ListPagamentos(ctx)
	require.NoError(t, err)
	assert.Len(t, pagamentos, 1)
}

func TestUpdatePagamentoStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	banca, err := s.InsertBanca(ctx, "Maria", 1500, nil, nil)
	require.NoError(t, err)
	_, err = s.Promote(ctx, banca.ID, nil)
	require.NoError(t, err)

	paidTime := time.Now().Add(time.Hour)
	s.now = func() time.Time { return paidTime }

	paid, err := s.UpdatePagamentoStatus(ctx, banca.ID, models.StatusPago)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPago, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.WithinDuration(t, paidTime, *paid.PaidAt, time.Second)

	unpaid, err := s.UpdatePagamentoStatus(ctx, banca.ID, models.StatusNaoPago)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNaoPago, unpaid.Status)
	assert.Nil(t, unpaid.PaidAt, "reverting to nao_pago clears PaidAt")
}

func TestUpdatePagamentoStatusRejectsUnknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdatePagamentoStatus(context.Background(), "any", "cancelado")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = s.UpdatePagamentoStatus(context.Background(), "missing", models.StatusPago)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePagamento(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	banca, err := s.InsertBanca(ctx, "Maria", 1500, nil, nil)
	require.NoError(t, err)
	_, err = s.Promote(ctx, banca.ID, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeletePagamento(ctx, banca.ID))
	assert.ErrorIs(t, s.DeletePagamento(ctx, banca.ID), ErrNotFound)
}
