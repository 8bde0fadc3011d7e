package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Duduxlll/banca-xand/notify"
	"github.com/Duduxlll/banca-xand/store"
)

// BancaHandler is the operator API over the stage-1 ledger.
type BancaHandler struct {
	ledger   *store.LedgerStore
	notifier *notify.Broadcaster
}

func NewBancaHandler(ledger *store.LedgerStore, notifier *notify.Broadcaster) *BancaHandler {
	return &BancaHandler{ledger: ledger, notifier: notifier}
}

func (h *BancaHandler) List(c *gin.Context) {
	bancas, err := h.ledger.ListBancas(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}
	c.JSON(http.StatusOK, bancas)
}

type createBancaRequest struct {
	Nome          string  `json:"nome"`
	DepositoCents *int64  `json:"depositoCents"`
	PixType       *string `json:"pixType"`
	PixKey        *string `json:"pixKey"`
}

// Create is the manual entry path, used when the operator records a deposit
// that arrived outside the charge flow.
func (h *BancaHandler) Create(c *gin.Context) {
	var req createBancaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados_invalidos"})
		return
	}
	req.Nome = strings.TrimSpace(req.Nome)
	if req.Nome == "" || req.DepositoCents == nil || *req.DepositoCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados_invalidos"})
		return
	}

	banca, err := h.ledger.InsertBanca(c.Request.Context(), req.Nome, *req.DepositoCents, req.PixType, req.PixKey)
	if err != nil {
		zap.L().Error("manual banca insert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}

	h.notifier.Broadcast(notify.EventBancasChanged, "insert")
	c.JSON(http.StatusOK, banca)
}

type updateBancaRequest struct {
	BancaCents *int64 `json:"bancaCents"`
}

func (h *BancaHandler) UpdateAmount(c *gin.Context) {
	var req updateBancaRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BancaCents == nil || *req.BancaCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados_invalidos"})
		return
	}

	banca, err := h.ledger.UpdateBancaAmount(c.Request.Context(), c.Param("id"), *req.BancaCents)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}

	h.notifier.Broadcast(notify.EventBancasChanged, "update")
	c.JSON(http.StatusOK, banca)
}

func (h *BancaHandler) Delete(c *gin.Context) {
	if err := h.ledger.DeleteBanca(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}

	h.notifier.Broadcast(notify.EventBancasChanged, "delete")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type promoteRequest struct {
	BancaCents *int64 `json:"bancaCents"`
}

// Promote moves the record into pagamentos. Both stages change, so both
// events broadcast.
func (h *BancaHandler) Promote(c *gin.Context) {
	var req promoteRequest
	// Body is optional; an empty body means "carry the current amount".
	_ = c.ShouldBindJSON(&req)

	pagamento, err := h.ledger.Promote(c.Request.Context(), c.Param("id"), req.BancaCents)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		zap.L().Error("promotion failed", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "falha_mover"})
		return
	}

	h.notifier.Broadcast(notify.EventBancasChanged, "moved")
	h.notifier.Broadcast(notify.EventPagamentosChanged, "moved")
	c.JSON(http.StatusOK, gin.H{"ok": true, "pagamento": pagamento})
}
