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

const defaultEmailBaseURL = "https://api.resend.com"

// EmailSender delivers notifications through the Resend email API.
type EmailSender struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewEmailSender builds a sender using apiKey and from as the From address.
func NewEmailSender(apiKey, from string) *EmailSender {
	return &EmailSender{
		apiKey:     apiKey,
		from:       from,
		baseURL:    defaultEmailBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send implements Sender.
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	subject := msg.Subject
	if subject == "" {
		subject = "Office notification"
	}
	payload, err := json.Marshal(emailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: subject,
		Text:    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email api returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
