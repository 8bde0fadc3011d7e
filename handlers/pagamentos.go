package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Duduxlll/banca-xand/notify"
	"github.com/Duduxlll/banca-xand/store"
)

// PagamentoHandler is the operator API over the stage-2 ledger.
type PagamentoHandler struct {
	ledger   *store.LedgerStore
	notifier *notify.Broadcaster
}

func NewPagamentoHandler(ledger *store.LedgerStore, notifier *notify.Broadcaster) *PagamentoHandler {
	return &PagamentoHandler{ledger: ledger, notifier: notifier}
}

func (h *PagamentoHandler) List(c *gin.Context) {
	pagamentos, err := h.ledger.ListPagamentos(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}
	c.JSON(http.StatusOK, pagamentos)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *PagamentoHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status_invalido"})
		return
	}

	pagamento, err := h.ledger.UpdatePagamentoStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "status_invalido"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		}
		return
	}

	h.notifier.Broadcast(notify.EventPagamentosChanged, "update-status")
	c.JSON(http.StatusOK, pagamento)
}

func (h *PagamentoHandler) Delete(c *gin.Context) {
	if err := h.ledger.DeletePagamento(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
		return
	}

	h.notifier.Broadcast(notify.EventPagamentosChanged, "delete")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
