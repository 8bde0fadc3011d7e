package models

import (
	"time"
)

// Payout statuses. Anything else is rejected.
const (
	StatusPago    = "pago"
	StatusNaoPago = "nao_pago"
)

// Pagamento is a stage-2 ledger entry, created only by promoting a Banca.
// ID and CreatedAt carry over from the promoted record so identity and the
// original deposit time survive the move. PagamentoCents is a snapshot taken
// at promotion time and is never re-derived.
type Pagamento struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Nome           string     `gorm:"size:120;not null" json:"nome"`
	PagamentoCents int64      `gorm:"not null" json:"pagamentoCents"`
	PixType        *string    `gorm:"size:20" json:"pixType"`
	PixKey         *string    `gorm:"size:140" json:"pixKey"`
	Status         string     `gorm:"size:20;not null;default:'nao_pago'" json:"status"`
	CreatedAt      time.Time  `gorm:"not null" json:"createdAt"`
	PaidAt         *time.Time `json:"paidAt"`
}

// TableName overrides the table name
func (Pagamento) TableName() string {
	return "pagamentos"
}
