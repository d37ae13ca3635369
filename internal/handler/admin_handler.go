package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"refpay/internal/domain"
	"refpay/internal/models"
	"refpay/internal/repository"
	"refpay/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	payouts     *service.PayoutService
	bulk        *service.BulkService
	ledger      *service.LedgerService
	partners    repository.PartnerRepository
	commissions repository.CommissionRepository
	log         *zap.SugaredLogger
}

func NewAdminHandler(
	payouts *service.PayoutService,
	bulk *service.BulkService,
	ledger *service.LedgerService,
	partners repository.PartnerRepository,
	commissions repository.CommissionRepository,
	log *zap.SugaredLogger,
) *AdminHandler {
	return &AdminHandler{
		payouts:     payouts,
		bulk:        bulk,
		ledger:      ledger,
		partners:    partners,
		commissions: commissions,
		log:         log,
	}
}

// ListPayouts handles GET /admin/payouts, filterable by partner and status.
func (h *AdminHandler) ListPayouts(c *gin.Context) {
	partnerID, _ := strconv.ParseUint(c.Query("partner_id"), 10, 64)
	page, limit := parsePagination(c)
	f := repository.PayoutFilter{
		PartnerID: uint(partnerID),
		Status:    c.Query("status"),
		Page:      page,
		Limit:     limit,
	}
	payouts, total, err := h.payouts.List(c.Request.Context(), f)
	if err != nil {
		h.log.Errorw("admin list payouts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payouts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payouts, "total": total, "page": page, "limit": limit})
}

// BulkAction handles POST /admin/payouts/bulk. Items are processed one at a
// time; the result reports per-reference failures and the batch never aborts.
func (h *AdminHandler) BulkAction(c *gin.Context) {
	var req struct {
		Action     string   `json:"action" binding:"required,oneof=APPROVE REJECT CANCEL"`
		References []string `json:"references" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := h.bulk.Apply(c.Request.Context(), req.Action, req.References)
	c.JSON(http.StatusOK, result)
}

// CreateCommission handles POST /admin/commissions, a manual credit to a
// partner's ledger. SourceRef makes retries idempotent: a replay answers 409
// instead of double-crediting.
func (h *AdminHandler) CreateCommission(c *gin.Context) {
	var req struct {
		PartnerID   uint   `json:"partner_id" binding:"required"`
		AmountCents int64  `json:"amount_cents" binding:"required,min=1"`
		SourceRef   string `json:"source_ref" binding:"required"`
		Description string `json:"description"`
		Status      string `json:"status" binding:"omitempty,oneof=PENDING CONFIRMED"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.partners.GetByID(c.Request.Context(), req.PartnerID); err != nil {
		writeError(c, err)
		return
	}
	status := req.Status
	if status == "" {
		status = domain.CommissionStatusConfirmed
	}
	cm := &models.Commission{
		PartnerID:   req.PartnerID,
		SourceRef:   req.SourceRef,
		AmountCents: req.AmountCents,
		Status:      status,
		Description: req.Description,
	}
	if status == domain.CommissionStatusConfirmed {
		now := time.Now()
		cm.ConfirmedAt = &now
	}
	if err := h.commissions.Create(c.Request.Context(), cm); err != nil {
		if errors.Is(err, repository.ErrDuplicateSourceRef) {
			existing, gerr := h.commissions.GetBySourceRef(c.Request.Context(), req.SourceRef)
			if gerr != nil {
				c.JSON(http.StatusConflict, gin.H{"error": "source_ref already recorded"})
				return
			}
			c.JSON(http.StatusConflict, gin.H{"error": "source_ref already recorded", "commission": existing})
			return
		}
		h.log.Errorw("commission create failed", "source_ref", req.SourceRef, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record commission"})
		return
	}
	c.JSON(http.StatusCreated, cm)
}

// ConfirmCommission handles POST /admin/commissions/:source_ref/confirm.
// PENDING credits become spendable here once the upstream conversion settles.
// Confirming twice is a no-op; a REVERSED credit cannot come back.
func (h *AdminHandler) ConfirmCommission(c *gin.Context) {
	sourceRef := c.Param("source_ref")
	cm, err := h.commissions.GetBySourceRef(c.Request.Context(), sourceRef)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "commission not found"})
		return
	}
	switch cm.Status {
	case domain.CommissionStatusConfirmed:
		c.JSON(http.StatusOK, cm)
		return
	case domain.CommissionStatusReversed:
		c.JSON(http.StatusConflict, gin.H{"error": "commission was reversed"})
		return
	}
	if err := h.commissions.UpdateStatus(c.Request.Context(), cm.ID, domain.CommissionStatusConfirmed); err != nil {
		h.log.Errorw("commission confirm failed", "source_ref", sourceRef, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to confirm commission"})
		return
	}
	confirmed, err := h.commissions.GetBySourceRef(c.Request.Context(), sourceRef)
	if err != nil {
		c.JSON(http.StatusOK, cm)
		return
	}
	c.JSON(http.StatusOK, confirmed)
}

// PartnerBalance handles GET /admin/partners/:id/balance.
func (h *AdminHandler) PartnerBalance(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	summary, err := h.ledger.Summary(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CreatePartner handles POST /admin/partners.
func (h *AdminHandler) CreatePartner(c *gin.Context) {
	var req struct {
		Name          string `json:"name" binding:"required"`
		Email         string `json:"email" binding:"required,email"`
		PayoutAccount string `json:"payout_account"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := &models.Partner{
		Name:          req.Name,
		Email:         req.Email,
		Status:        domain.PartnerStatusActive,
		PayoutAccount: req.PayoutAccount,
	}
	if err := h.partners.Create(c.Request.Context(), p); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.log.Errorw("partner create failed", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create partner"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPartners handles GET /admin/partners.
func (h *AdminHandler) ListPartners(c *gin.Context) {
	page, limit := parsePagination(c)
	partners, total, err := h.partners.List(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list partners"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": partners, "total": total, "page": page, "limit": limit})
}

// GetPartner handles GET /admin/partners/:id.
func (h *AdminHandler) GetPartner(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := h.partners.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
