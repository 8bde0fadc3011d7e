package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Duduxlll/banca-xand/provider"
	"github.com/Duduxlll/banca-xand/reconcile"
)

// WebhookHandler receives provider-initiated payment notifications. The
// webhook is the authoritative confirmation source for the redirect variant.
type WebhookHandler struct {
	providers  map[string]provider.PixProvider
	reconciler *reconcile.Reconciler
}

func NewWebhookHandler(providers map[string]provider.PixProvider, reconciler *reconcile.Reconciler) *WebhookHandler {
	return &WebhookHandler{providers: providers, reconciler: reconciler}
}

// Receive verifies and ledgers one inbound event. Signature or IP failures
// reject the request with no ledger effect; verified non-paid events and
// replays answer 200 so the provider stops retrying.
func (h *WebhookHandler) Receive(c *gin.Context) {
	name := c.Param("provider")
	pix, ok := h.providers[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_provider"})
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		webhookEventsTotal.WithLabelValues(name, "read_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados_invalidos"})
		return
	}

	ev, err := pix.VerifyEvent(raw, c.Request.Header, sourceIP(c))
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrIPNotAllowed):
			webhookEventsTotal.WithLabelValues(name, "ip_rejected").Inc()
			zap.L().Warn("webhook rejected by ip allowlist", zap.String("provider", name), zap.String("ip", sourceIP(c)))
			c.JSON(http.StatusForbidden, gin.H{"error": "ip_not_allowed"})
		case errors.Is(err, provider.ErrInvalidSignature):
			webhookEventsTotal.WithLabelValues(name, "bad_signature").Inc()
			zap.L().Warn("webhook signature mismatch", zap.String("provider", name))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
		case errors.Is(err, provider.ErrEventIgnored):
			webhookEventsTotal.WithLabelValues(name, "ignored").Inc()
			c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
		case errors.Is(err, provider.ErrInvalidAmount):
			webhookEventsTotal.WithLabelValues(name, "bad_amount").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "valor_invalido"})
		default:
			webhookEventsTotal.WithLabelValues(name, "error").Inc()
			zap.L().Error("webhook verification failed", zap.String("provider", name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook_fail"})
		}
		return
	}

	banca, created, err := h.reconciler.Confirm(c.Request.Context(), name, "webhook-paid", ev)
	if err != nil {
		webhookEventsTotal.WithLabelValues(name, "storage_error").Inc()
		zap.L().Error("webhook confirmation failed", zap.String("provider", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook_fail"})
		return
	}
	if !created {
		// Replay of an already-ledgered payment.
		webhookEventsTotal.WithLabelValues(name, "duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
		return
	}

	webhookEventsTotal.WithLabelValues(name, "confirmed").Inc()
	depositsConfirmedTotal.WithLabelValues("webhook").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true, "banca": banca})
}

// sourceIP prefers the first X-Forwarded-For hop (the original sender behind
// the platform proxy), falling back to the socket peer.
func sourceIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return c.ClientIP()
}
