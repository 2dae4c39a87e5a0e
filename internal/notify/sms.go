package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSMSBaseURL = "https://api.telnyx.com/v2"

// SMSSender delivers notifications through the Telnyx messaging API.
type SMSSender struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewSMSSender builds a sender using apiKey and from as the sending number.
func NewSMSSender(apiKey, from string) *SMSSender {
	return &SMSSender{
		apiKey:     apiKey,
		from:       from,
		baseURL:    defaultSMSBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send implements Sender.
func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(smsRequest{
		From: s.from,
		To:   msg.To,
		Text: msg.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms api returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
