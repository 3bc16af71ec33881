// Package sms dispatches alert notifications through the Twilio REST API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloudburst/config"
	"cloudburst/models"
)

// DeliveryResult is the per-recipient outcome of a dispatch.
type DeliveryResult struct {
	To     string `json:"to"`
	SID    string `json:"sid,omitempty"`
	Status string `json:"status"` // sent | failed
	Error  string `json:"error,omitempty"`
}

// DispatchResult summarizes one dispatch call. A dispatch never fails the
// operation that triggered it; callers surface this result and move on.
type DispatchResult struct {
	Success         bool             `json:"success"`
	Configured      bool             `json:"configured"`
	SuccessCount    int              `json:"success_count"`
	FailureCount    int              `json:"failure_count"`
	DeliveryResults []DeliveryResult `json:"delivery_results,omitempty"`
	Errors          []string         `json:"errors,omitempty"`
}

// StatusInfo describes provider readiness for the status endpoint.
// Credentials are masked before leaving the server.
type StatusInfo struct {
	Enabled      bool   `json:"enabled"`
	Configured   bool   `json:"configured"`
	AccountSID   string `json:"account_sid"`
	AuthToken    string `json:"auth_token"`
	PhoneNumber  string `json:"phone_number"`
	SDKInstalled bool   `json:"sdk_installed"`
	Status       string `json:"status"`
}

// Dispatcher sends SMS through Twilio's Messages endpoint.
type Dispatcher struct {
	accountSID string
	authToken  string
	fromNumber string
	apiBase    string
	httpClient *http.Client
}

// NewDispatcher builds a dispatcher from the Twilio config section. An
// unconfigured dispatcher is still usable: Send short-circuits with
// configured:false so alert creation works without a provider.
func NewDispatcher(cfg config.TwilioConfig) *Dispatcher {
	return &Dispatcher{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		apiBase:    cfg.APIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether provider credentials are present.
func (d *Dispatcher) Configured() bool {
	return d.accountSID != "" && d.authToken != "" && d.fromNumber != ""
}

// Status returns masked provider readiness information.
func (d *Dispatcher) Status() StatusInfo {
	info := StatusInfo{
		Enabled:      true,
		Configured:   d.Configured(),
		AccountSID:   mask(d.accountSID),
		AuthToken:    mask(d.authToken),
		PhoneNumber:  d.fromNumber,
		SDKInstalled: true, // spoken over plain HTTP, nothing extra to install
		Status:       "not_configured",
	}
	if info.Configured {
		info.Status = "ready"
	}
	return info
}

// Send dispatches message to every recipient sequentially. Per-recipient
// failures are collected, not fatal; the result reports both counts.
func (d *Dispatcher) Send(ctx context.Context, recipients []string, message string) *DispatchResult {
	result := &DispatchResult{Configured: d.Configured()}

	if !result.Configured {
		result.Errors = append(result.Errors, "SMS provider is not configured")
		return result
	}
	if len(recipients) == 0 {
		result.Success = true
		return result
	}

	for _, to := range recipients {
		delivery := d.sendOne(ctx, to, message)
		result.DeliveryResults = append(result.DeliveryResults, delivery)
		if delivery.Status == "sent" {
			result.SuccessCount++
		} else {
			result.FailureCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", to, delivery.Error))
		}
	}

	result.Success = result.FailureCount == 0
	log.Printf("📨 SMS dispatch: %d sent, %d failed", result.SuccessCount, result.FailureCount)
	return result
}

func (d *Dispatcher) sendOne(ctx context.Context, to, message string) DeliveryResult {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", d.apiBase, d.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", d.fromNumber)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return DeliveryResult{To: to, Status: "failed", Error: err.Error()}
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		extErr := &models.ExternalServiceError{Service: "twilio", Err: err}
		return DeliveryResult{To: to, Status: "failed", Error: extErr.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return DeliveryResult{To: to, Status: "failed", Error: twilioErrorMessage(resp.StatusCode, body)}
	}

	var created struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return DeliveryResult{To: to, Status: "failed", Error: "unreadable provider response"}
	}

	return DeliveryResult{To: to, SID: created.SID, Status: "sent"}
}

func twilioErrorMessage(statusCode int, body []byte) string {
	var twilioErr struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	if err := json.Unmarshal(body, &twilioErr); err == nil && twilioErr.Message != "" {
		return fmt.Sprintf("provider error %d: %s", twilioErr.Code, twilioErr.Message)
	}
	return fmt.Sprintf("provider returned HTTP %d", statusCode)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-6) + s[len(s)-4:]
}
