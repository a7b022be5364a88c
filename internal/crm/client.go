// Package crm creates follow-up tasks in the CRM for the assigned originator.
package crm

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

	"github.com/auma/compliance-gate/internal/models"
	"github.com/auma/compliance-gate/internal/version"
)

// ErrNoToken is returned when no access token exists for a location.
var ErrNoToken = errors.New("no crm access token for location")

// TokenSource yields an access token for a tenant. Token exchange and
// refresh live outside this service.
type TokenSource interface {
	AccessToken(ctx context.Context, locationID string) (string, error)
}

// StaticToken uses one token for every location.
type StaticToken string

func (t StaticToken) AccessToken(_ context.Context, _ string) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// Client talks to the CRM REST API.
type Client struct {
	baseURL    string
	apiVersion string
	tokens     TokenSource
	http       *http.Client
}

func NewClient(baseURL, apiVersion string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		tokens:     tokens,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

type taskRequest struct {
	ContactID  string `json:"contactId,omitempty"`
	AssignedTo string `json:"assignedTo"`
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
	DueDate    string `json:"dueDate"`
	Completed  bool   `json:"completed"`
}

type taskResponse struct {
	Task struct {
		ID string `json:"id"`
	} `json:"task"`
}

// CreateTask creates a task assigned to an originator and returns its id.
func (c *Client) CreateTask(ctx context.Context, locationID string, task models.CRMTask) (string, error) {
	token, err := c.tokens.AccessToken(ctx, locationID)
	if err != nil {
		return "", fmt.Errorf("crm token: %w", err)
	}

	body, err := json.Marshal(taskRequest{
		ContactID:  task.ContactID,
		AssignedTo: task.AssignedTo,
		Title:      task.Title,
		Body:       task.Description,
		DueDate:    task.DueDate.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts/tasks", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Version", c.apiVersion)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("crm create task: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var out taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode crm task: %w", err)
	}
	return out.Task.ID, nil
}
