package handler

import (
	"net/http"
	"strconv"

	"refpay/internal/middleware"
	"refpay/internal/repository"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	repo     repository.NotificationRepository
	partners repository.PartnerRepository
}

func NewNotificationHandler(repo repository.NotificationRepository, partners repository.PartnerRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo, partners: partners}
}

func (h *NotificationHandler) List(c *gin.Context) {
	partnerID := middleware.GetPartnerID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.repo.ListByPartnerID(c.Request.Context(), partnerID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	partnerID := middleware.GetPartnerID(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if err := h.repo.MarkRead(c.Request.Context(), uint(id), partnerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterFCMToken saves the FCM token for push notifications.
func (h *NotificationHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	if err := h.partners.UpdateFCMToken(c.Request.Context(), middleware.GetPartnerID(c), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
