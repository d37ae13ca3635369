package handler

import (
	"io"
	"net/http"

	"refpay/internal/service"
	"refpay/pkg/gateway"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TransferWebhookHandler receives transfer status events from the gateway.
type TransferWebhookHandler struct {
	gw         gateway.Gateway
	reconciler *service.ReconcilerService
	log        *zap.SugaredLogger
}

func NewTransferWebhookHandler(gw gateway.Gateway, reconciler *service.ReconcilerService, log *zap.SugaredLogger) *TransferWebhookHandler {
	return &TransferWebhookHandler{gw: gw, reconciler: reconciler, log: log}
}

// Handle processes a webhook delivery. The signature is verified over the raw
// body before anything else touches it. Verified, parseable deliveries are
// always acknowledged with 200 so the gateway stops redelivering, duplicates
// and unknown refs included; a failed reconcile answers 500 to draw a
// redelivery.
func (h *TransferWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Errorw("[Webhook] body read failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !h.gw.VerifySignature(body, c.GetHeader("X-Paylio-Signature")) {
		h.log.Warnw("[Webhook] rejected unsigned delivery", "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	h.log.Debugf("[Webhook] raw body: %s", string(body))

	event, err := h.gw.ParseEvent(body)
	if err != nil {
		h.log.Warnw("[Webhook] unparseable payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.reconciler.Reconcile(c.Request.Context(), event)
	if err != nil {
		h.log.Errorw("[Webhook] reconcile failed", "event_id", event.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
		return
	}
	h.log.Infow("[Webhook] event settled",
		"event_id", event.ID, "kind", event.Kind,
		"result", result.Status, "reference", result.Reference, "no_op", result.NoOp)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
