// Package reconcile decides when a provider payment becomes a ledger entry.
// Webhook delivery and status polling both land here, so a deposit is
// inserted exactly once no matter which path reports first or how often the
// provider retries.
package reconcile

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Duduxlll/banca-xand/models"
	"github.com/Duduxlll/banca-xand/notify"
	"github.com/Duduxlll/banca-xand/provider"
)

type Reconciler struct {
	db       *gorm.DB
	notifier *notify.Broadcaster
}

func NewReconciler(db *gorm.DB, notifier *notify.Broadcaster) *Reconciler {
	return &Reconciler{db: db, notifier: notifier}
}

var errDuplicateEvent = errors.New("duplicate payment event")

// Confirm ensures a Banca exists for the verified paid event. It returns the
// record and created=true on first confirmation, and (nil, false, nil) when
// the payment was already ledgered. The dedup row and the banca insert share
// one transaction: a replay hits the (provider, payment id) unique index and
// rolls the whole thing back.
func (r *Reconciler) Confirm(ctx context.Context, providerName, reason string, ev *provider.PaidEvent) (*models.Banca, bool, error) {
	if ev.AmountCents < 1 {
		return nil, false, provider.ErrInvalidAmount
	}

	banca := models.Banca{
		ID:            models.NewID(),
		Nome:          models.TruncateNome(ev.Nome),
		DepositoCents: ev.AmountCents,
		PixType:       ev.PixType,
		PixKey:        ev.PixKey,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ev.ProviderPaymentID != "" {
			dedup := models.WebhookEvent{
				Provider:          providerName,
				ProviderPaymentID: ev.ProviderPaymentID,
				EventType:         ev.EventType,
				AmountCents:       ev.AmountCents,
				PayloadJSON:       string(ev.Raw),
			}
			if err := tx.Create(&dedup).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errDuplicateEvent
				}
				return err
			}
		} else {
			// No natural dedup key from the provider: accept at-least-once
			// for this event and make it visible in the logs.
			zap.L().Warn("paid event without provider payment id, inserting without dedup guarantee",
				zap.String("provider", providerName))
		}

		return tx.Create(&banca).Error
	})
	if errors.Is(err, errDuplicateEvent) {
		zap.L().Info("duplicate payment event ignored",
			zap.String("provider", providerName),
			zap.String("payment_id", ev.ProviderPaymentID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	zap.L().Info("deposit confirmed",
		zap.String("provider", providerName),
		zap.String("payment_id", ev.ProviderPaymentID),
		zap.String("banca_id", banca.ID),
		zap.Int64("amount_cents", ev.AmountCents))

	r.notifier.Broadcast(notify.EventBancasChanged, reason)
	return &banca, true, nil
}
