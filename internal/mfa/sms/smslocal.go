// Package sms delivers OTPs by SMS.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBaseURL = "https://app.smslocal.in/api/smsapi"
	countryCode    = "91"
)

// OTPSender delivers an OTP to a 10-digit mobile number.
type OTPSender interface {
	SendOTP(ctx context.Context, mobile, otp string) error
}

// SMSLocalClient sends OTP SMS via the SMS Local API.
type SMSLocalClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewSMSLocalClient returns a client that uses the given API key and optional base URL/sender.
func NewSMSLocalClient(apiKey, baseURL, sender string) *SMSLocalClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &SMSLocalClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SendOTP sends otp to mobile (route=otp). The Indian country code is prepended to bare
// 10-digit numbers. Does not log the OTP.
func (c *SMSLocalClient) SendOTP(ctx context.Context, mobile, otp string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	body := map[string]interface{}{
		"route":     "otp",
		"numbers":   withCountryCode(mobile),
		"variables": otp,
	}
	if c.Sender != "" {
		body["sender"] = c.Sender
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func withCountryCode(mobile string) string {
	mobile = strings.TrimPrefix(strings.TrimSpace(mobile), "+")
	if len(mobile) == 10 {
		return countryCode + mobile
	}
	return mobile
}
