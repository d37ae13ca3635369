package handler

import (
	"errors"
	"net/http"

	"refpay/internal/domain"
	"refpay/internal/middleware"
	"refpay/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PayoutHandler struct {
	payouts *service.PayoutService
	ledger  *service.LedgerService
	log     *zap.SugaredLogger
}

func NewPayoutHandler(payouts *service.PayoutService, ledger *service.LedgerService, log *zap.SugaredLogger) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, ledger: ledger, log: log}
}

// Create handles POST /payouts. The status code tracks how far the request
// got: 201 with the payout on success (PENDING for MANUAL, PROCESSING after
// a gateway accept), 422 when validation refuses it, 502 when the gateway
// refused or was unreachable. In the 502 case the payout is already persisted
// as FAILED with the gateway's reason.
func (h *PayoutHandler) Create(c *gin.Context) {
	partnerID := middleware.GetPartnerID(c)
	var req struct {
		AmountCents int64  `json:"amount_cents"`
		Method      string `json:"method" binding:"omitempty,oneof=GATEWAY MANUAL"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.payouts.RequestPayout(c.Request.Context(), partnerID, req.AmountCents, req.Method)
	if err != nil {
		writeError(c, err)
		return
	}
	if p.Status == domain.PayoutStatusFailed {
		c.JSON(http.StatusBadGateway, gin.H{"error": p.FailureReason, "payout": p})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Get handles GET /payouts/:reference. Partners see only their own payouts;
// a foreign reference reads as not found.
func (h *PayoutHandler) Get(c *gin.Context) {
	p, err := h.payouts.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	if middleware.GetRole(c) != domain.RoleAdmin && p.PartnerID != middleware.GetPartnerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrPayoutNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListMine handles GET /me/payouts.
func (h *PayoutHandler) ListMine(c *gin.Context) {
	partnerID := middleware.GetPartnerID(c)
	status := c.Query("status")
	page, limit := parsePagination(c)
	payouts, total, err := h.payouts.ListByPartner(c.Request.Context(), partnerID, status, page, limit)
	if err != nil {
		h.log.Errorw("list payouts failed", "partner_id", partnerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payouts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payouts, "total": total, "page": page, "limit": limit})
}

// Balance handles GET /me/balance.
func (h *PayoutHandler) Balance(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context(), middleware.GetPartnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListMyCommissions handles GET /me/commissions.
func (h *PayoutHandler) ListMyCommissions(c *gin.Context) {
	partnerID := middleware.GetPartnerID(c)
	page, limit := parsePagination(c)
	commissions, total, err := h.ledger.ListCommissions(c.Request.Context(), partnerID, page, limit)
	if err != nil {
		h.log.Errorw("list commissions failed", "partner_id", partnerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list commissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": commissions, "total": total, "page": page, "limit": limit})
}

// writeError maps service errors onto API status codes. Anything unmapped is
// a 500 with the detail kept out of the response.
func writeError(c *gin.Context, err error) {
	if rej, ok := domain.AsRejection(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": rej.Message, "code": rej.Code})
		return
	}
	switch {
	case errors.Is(err, domain.ErrPayoutNotFound), errors.Is(err, domain.ErrPartnerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
