package models

import "time"

// WebhookEvent records every provider payment that produced a ledger write.
// The composite unique index on (provider, provider_payment_id) is the dedup
// key: a replayed webhook or a webhook/poll race hits the constraint and the
// deposit is inserted exactly once.
type WebhookEvent struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Provider          string    `gorm:"size:20;not null;uniqueIndex:ux_webhook_events_provider_payment,priority:1" json:"provider"`
	ProviderPaymentID string    `gorm:"size:191;not null;uniqueIndex:ux_webhook_events_provider_payment,priority:2" json:"providerPaymentId"`
	EventType         string    `gorm:"size:50" json:"eventType"`
	AmountCents       int64     `gorm:"not null" json:"amountCents"`
	PayloadJSON       string    `gorm:"type:text" json:"-"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName overrides the table name
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
