// Package sms sends text messages through an SMTP2Go compatible HTTP API.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/auma/compliance-gate/internal/version"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("sms gateway not configured")

type Client struct {
	baseURL string
	apiKey  string
	sender  string
	http    *http.Client
}

func NewClient(baseURL, apiKey, sender string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		sender:  sender,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	Sender  string   `json:"sender,omitempty"`
	To      []string `json:"to"`
	Message string   `json:"message"`
}

// SendSMS delivers message to one phone number.
func (c *Client) SendSMS(ctx context.Context, to, message string) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendRequest{Sender: c.sender, To: []string{to}, Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sms/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Smtp2go-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway error: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}
