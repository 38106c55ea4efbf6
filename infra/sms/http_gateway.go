// Package sms provides SMSGateway implementations.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/notification"
)

// HTTPGateway delivers messages through a JSON-over-HTTP SMS provider.
// Transport and provider errors are folded into the returned Result.
type HTTPGateway struct {
	client   *http.Client
	apiURL   string
	apiKey   string
	senderID string
	logger   *slog.Logger
}

// NewHTTPGateway creates a gateway from config. The HTTP timeout bounds the
// whole send so a slow provider cannot stall request handling.
func NewHTTPGateway(cfg config.SMS, logger *slog.Logger) *HTTPGateway {
	return &HTTPGateway{
		client:   &http.Client{Timeout: cfg.HTTPTimeout},
		apiURL:   cfg.ApiUrl,
		apiKey:   cfg.ApiKey,
		senderID: cfg.SenderID,
		logger:   logger.With("component", "sms.HTTPGateway"),
	}
}

type sendRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id"`
}

type sendResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Send posts one message to the provider.
func (g *HTTPGateway) Send(ctx context.Context, phone, message string) notification.Result {
	body, err := json.Marshal(sendRequest{
		To:       phone,
		Message:  message,
		SenderID: g.senderID,
	})
	if err != nil {
		return notification.Result{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return notification.Result{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("sms provider unreachable", "error", err)
		return notification.Result{Error: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		parsed = sendResponse{}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := parsed.Error
		if reason == "" {
			reason = fmt.Sprintf("provider returned status %d", resp.StatusCode)
		}
		g.logger.Warn("sms provider rejected message",
			"status", resp.StatusCode, "reason", reason)
		return notification.Result{Error: reason}
	}

	return notification.Result{Success: true}
}
