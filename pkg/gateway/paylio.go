package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type PaylioConfig struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	WebhookSecret  string
	RequestTimeout time.Duration
}

// Paylio implements Gateway against the Paylio transfer API. Authentication
// is OAuth2 client credentials; the token source refreshes transparently.
type Paylio struct {
	baseURL       string
	webhookSecret string
	client        *http.Client
	log           *zap.SugaredLogger
}

func NewPaylio(cfg PaylioConfig, log *zap.SugaredLogger) *Paylio {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paylio.io"
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.BaseURL + "/oauth/token",
	}
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return &Paylio{
		baseURL:       cfg.BaseURL,
		webhookSecret: cfg.WebhookSecret,
		client:        cc.Client(ctx),
		log:           log,
	}
}

func (p *Paylio) Name() string { return "paylio" }

type paylioTransferReq struct {
	Reference   string `json:"reference"`
	Account     string `json:"account"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Narration   string `json:"narration"`
	CallbackURL string `json:"callback_url"`
}

type paylioTransferResp struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"` // accepted | rejected
	Message   string `json:"message"`
}

func (p *Paylio) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	payload := paylioTransferReq{
		Reference:   req.Reference,
		Account:     req.AccountToken,
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		Narration:   req.Narration,
		CallbackURL: req.CallbackURL,
	}
	if payload.Currency == "" {
		payload.Currency = "USD"
	}
	if payload.Narration == "" {
		payload.Narration = "Partner payout"
	}
	body, _ := json.Marshal(payload)
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	p.log.Infof("[Paylio] POST %s/v1/transfers reference=%s amount=%d", p.baseURL, req.Reference, req.AmountCents)
	resp, err := p.client.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	p.log.Infof("[Paylio] transfer response status=%d body=%s", resp.StatusCode, string(respBody))

	var out paylioTransferResp
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, err
		}
		return &TransferResult{
			ExternalRef: out.ID,
			Accepted:    out.Status != "rejected",
			Message:     out.Message,
		}, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		// Business refusal, not a transport failure. The caller fails the
		// payout with the gateway's message.
		if err := json.Unmarshal(respBody, &out); err != nil || out.Message == "" {
			out.Message = string(respBody)
		}
		return &TransferResult{Accepted: false, Message: out.Message}, nil
	default:
		return nil, fmt.Errorf("paylio transfer: %d %s", resp.StatusCode, string(respBody))
	}
}

type paylioTransferStatusResp struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"` // pending | processing | paid | failed | canceled
	FailureReason string `json:"failure_reason"`
}

func (p *Paylio) GetTransfer(ctx context.Context, externalRef string) (*TransferStatus, error) {
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/transfers/"+externalRef, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paylio get transfer: %d %s", resp.StatusCode, string(respBody))
	}
	var out paylioTransferStatusResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &TransferStatus{
		ExternalRef:   out.ID,
		State:         out.Status,
		FailureReason: out.FailureReason,
	}, nil
}

func (p *Paylio) VerifySignature(payload []byte, signature string) bool {
	if p.webhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

type paylioEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      struct {
		TransferID    string `json:"transfer_id"`
		Reference     string `json:"reference"`
		Amount        int64  `json:"amount"`
		Currency      string `json:"currency"`
		FailureReason string `json:"failure_reason"`
	} `json:"data"`
}

func (p *Paylio) ParseEvent(payload []byte) (*Event, error) {
	var e paylioEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("paylio event: %w", err)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("paylio event: missing id")
	}
	kind := KindUnknown
	switch e.Type {
	case "transfer.paid":
		kind = KindPaid
	case "transfer.failed":
		kind = KindFailed
	case "transfer.canceled", "transfer.cancelled":
		kind = KindCanceled
	}
	return &Event{
		ID:            e.ID,
		Kind:          kind,
		ExternalRef:   e.Data.TransferID,
		Reference:     e.Data.Reference,
		FailureReason: e.Data.FailureReason,
		OccurredAt:    e.CreatedAt,
		Raw:           payload,
	}, nil
}
