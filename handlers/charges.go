package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Duduxlll/banca-xand/provider"
	"github.com/Duduxlll/banca-xand/reconcile"
	"github.com/Duduxlll/banca-xand/tokens"
	"github.com/Duduxlll/banca-xand/utils"
)

// ChargeHandler serves the public deposit flow: charge creation and status
// polling by opaque token.
type ChargeHandler struct {
	pix        provider.PixProvider
	registry   *tokens.Registry
	reconciler *reconcile.Reconciler
}

func NewChargeHandler(pix provider.PixProvider, registry *tokens.Registry, reconciler *reconcile.Reconciler) *ChargeHandler {
	return &ChargeHandler{pix: pix, registry: registry, reconciler: reconciler}
}

type createChargeRequest struct {
	Nome          string  `json:"nome"`
	ValorCentavos int64   `json:"valorCentavos"`
	Tipo          *string `json:"tipo"`
	Chave         *string `json:"chave"`
}

// Create validates the deposit intent, creates the provider charge and
// issues the polling token. The declared pix key is bookkeeping metadata;
// when present it must match its declared type, but it is never required.
func (h *ChargeHandler) Create(c *gin.Context) {
	var req createChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados_invalidos"})
		return
	}

	req.Nome = strings.TrimSpace(req.Nome)
	if len([]rune(req.Nome)) <= 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados_invalidos"})
		return
	}
	if req.ValorCentavos < provider.MinAmountCents {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos (mínimo R$ 10,00)"})
		return
	}
	if req.Tipo != nil && req.Chave != nil && !utils.IsKeyValid(*req.Tipo, *req.Chave) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados_invalidos"})
		return
	}

	charge, err := h.pix.CreateCharge(c.Request.Context(), provider.ChargeRequest{
		Nome:        req.Nome,
		AmountCents: req.ValorCentavos,
		PixType:     req.Tipo,
		PixKey:      req.Chave,
	})
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrNotConfigured):
			c.JSON(http.StatusOK, gin.H{"notAvailable": true})
		case errors.Is(err, provider.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos (mínimo R$ 10,00)"})
		case errors.Is(err, provider.ErrProviderUnavailable):
			zap.L().Error("charge creation failed", zap.String("provider", h.pix.Name()), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "provider_unavailable"})
		default:
			zap.L().Error("charge creation rejected", zap.String("provider", h.pix.Name()), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "provider_unavailable"})
		}
		return
	}

	token := h.registry.Issue(tokens.Deposit{
		ProviderPaymentID: charge.ProviderPaymentID,
		Nome:              req.Nome,
		AmountCents:       req.ValorCentavos,
		PixType:           req.Tipo,
		PixKey:            req.Chave,
	})
	chargesCreatedTotal.WithLabelValues(h.pix.Name()).Inc()

	resp := gin.H{"token": token}
	if charge.RedirectURL != "" {
		resp["redirectUrl"] = charge.RedirectURL
	}
	if charge.Emv != "" {
		resp["emv"] = charge.Emv
		resp["qrImage"] = charge.QRImageURL
	}
	c.JSON(http.StatusOK, resp)
}

// Status polls the provider for the payment behind a token. An unknown or
// expired token answers 404: the client must treat that as indeterminate,
// not as a failed payment. A paid answer runs the reconciler before
// responding, so polling confirms deposits even if the webhook never lands.
func (h *ChargeHandler) Status(c *gin.Context) {
	dep, ok := h.registry.Resolve(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "token_not_found"})
		return
	}

	status, err := h.pix.GetStatus(c.Request.Context(), dep.ProviderPaymentID)
	if err != nil {
		zap.L().Error("status poll failed", zap.String("provider", h.pix.Name()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_unavailable"})
		return
	}

	if status == provider.StatusPaid {
		_, created, err := h.reconciler.Confirm(c.Request.Context(), h.pix.Name(), "poll-paid", &provider.PaidEvent{
			ProviderPaymentID: dep.ProviderPaymentID,
			Nome:              dep.Nome,
			AmountCents:       dep.AmountCents,
			PixType:           dep.PixType,
			PixKey:            dep.PixKey,
			EventType:         "poll",
		})
		if err != nil {
			zap.L().Error("poll confirmation failed", zap.String("payment_id", dep.ProviderPaymentID), zap.Error(err))
		} else if created {
			depositsConfirmedTotal.WithLabelValues("poll").Inc()
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}
