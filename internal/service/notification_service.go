package service

import (
	"context"
	"encoding/json"
	"fmt"

	"refpay/internal/domain"
	"refpay/internal/models"
	"refpay/internal/repository"
	"refpay/internal/ws"

	"go.uber.org/zap"
)

// NotificationService fans payout events out to the partner: a notifications
// row, an FCM push, and the websocket feed. It implements Notifier for the
// lifecycle and monitor; every failure is logged and swallowed so delivery
// problems never block a transition.
type NotificationService struct {
	repo     repository.NotificationRepository
	partners repository.PartnerRepository
	fcm      *FCMService
	feed     *ws.Hub
	log      *zap.SugaredLogger
}

func NewNotificationService(repo repository.NotificationRepository, partners repository.PartnerRepository, fcm *FCMService, feed *ws.Hub, log *zap.SugaredLogger) *NotificationService {
	return &NotificationService{repo: repo, partners: partners, fcm: fcm, feed: feed, log: log}
}

// PayoutStatusChanged streams every transition to the feed and records the
// terminal ones.
func (s *NotificationService) PayoutStatusChanged(p *models.Payout) {
	if s.feed != nil {
		s.feed.BroadcastToPartner(p.PartnerID, map[string]interface{}{
			"type":           "payout.status",
			"reference":      p.Reference,
			"status":         p.Status,
			"amount_cents":   p.AmountCents,
			"net_cents":      p.NetCents,
			"failure_reason": p.FailureReason,
		})
	}
	if !domain.IsTerminalStatus(p.Status) {
		return
	}

	notifType, title, body := payoutMessage(p)
	s.notify(p.PartnerID, notifType, title, body, map[string]interface{}{
		"reference":    p.Reference,
		"status":       p.Status,
		"amount_cents": p.AmountCents,
	})
}

// PayoutStale alerts the admin feed about a payout stuck past the SLA.
func (s *NotificationService) PayoutStale(p *models.Payout) {
	if s.feed != nil {
		s.feed.BroadcastAdmins(map[string]interface{}{
			"type":         "payout.stale",
			"reference":    p.Reference,
			"external_ref": p.ExternalRef,
			"partner_id":   p.PartnerID,
		})
	}
}

func payoutMessage(p *models.Payout) (notifType, title, body string) {
	switch p.Status {
	case domain.PayoutStatusCompleted:
		return domain.NotificationTypePayoutCompleted, "Payout completed",
			fmt.Sprintf("Your payout of $%.2f was sent.", float64(p.NetCents)/100)
	case domain.PayoutStatusFailed:
		body := "Your payout failed."
		if p.FailureReason != "" {
			body = "Your payout failed: " + p.FailureReason
		}
		return domain.NotificationTypePayoutFailed, "Payout failed", body
	default:
		return domain.NotificationTypePayoutCancelled, "Payout cancelled",
			fmt.Sprintf("Your payout of $%.2f was cancelled.", float64(p.AmountCents)/100)
	}
}

func (s *NotificationService) notify(partnerID uint, notifType, title, body string, data map[string]interface{}) {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(context.Background(), &models.Notification{
		PartnerID: partnerID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		Data:      dataJSON,
	})
	if err != nil {
		s.log.Errorw("notification row create failed", "partner_id", partnerID, "type", notifType, "error", err)
	}
	s.sendPush(partnerID, notifType, title, body, data)
}

func (s *NotificationService) sendPush(partnerID uint, notifType, title, body string, data map[string]interface{}) {
	if s.fcm == nil || s.partners == nil {
		return
	}
	partner, err := s.partners.GetByID(context.Background(), partnerID)
	if err != nil || partner.FCMToken == "" {
		return
	}
	if err := s.fcm.SendToPartner(context.Background(), partner.FCMToken, notifType, title, body, data); err != nil {
		s.log.Errorw("push send failed", "partner_id", partnerID, "error", err)
	}
}
