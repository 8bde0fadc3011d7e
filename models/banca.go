package models

import (
	"time"
)

// Banca is a stage-1 ledger entry: a confirmed deposit that the operator
// still manages. DepositoCents is immutable after creation; BancaCents is
// the operator-edited running balance and is independent of the deposit.
type Banca struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Nome          string    `gorm:"size:120;not null" json:"nome"`
	DepositoCents int64     `gorm:"not null" json:"depositoCents"`
	BancaCents    *int64    `json:"bancaCents"`
	PixType       *string   `gorm:"size:20" json:"pixType"`
	PixKey        *string   `gorm:"size:140" json:"pixKey"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
}

// TableName overrides the table name
func (Banca) TableName() string {
	return "bancas"
}

// NomeMaxLen is the column width shared by both ledger stages.
const NomeMaxLen = 120

// TruncateNome clips a payer name to the column width without splitting a
// multibyte rune.
func TruncateNome(s string) string {
	runes := []rune(s)
	if len(runes) <= NomeMaxLen {
		return s
	}
	return string(runes[:NomeMaxLen])
}
