// Package notify posts portal events to the external notification endpoint.
// Delivery is best effort: failures are logged and counted, never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/metrics"
)

type EventType string

const (
	EventFileRead       EventType = "file_read"
	EventFileApproved   EventType = "file_approved"
	EventFileUploaded   EventType = "file_uploaded"
	EventNewMessage     EventType = "new_message"
	EventOfferSubmitted EventType = "offer_submitted"
)

type Event struct {
	Type       EventType `json:"type"`
	ProjectID  string    `json:"projectId,omitempty"`
	CustomerID string    `json:"customerId,omitempty"`
	PublicID   string    `json:"publicId,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	FolderPath string    `json:"folderPath,omitempty"`
	MessageID  string    `json:"messageId,omitempty"`
	OfferID    string    `json:"offerId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Notifier interface {
	// Notify sends ev in the background and returns immediately.
	Notify(ev Event)
}

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Notify(ev Event) {
	if c == nil || c.url == "" {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	go func() {
		// detached from the request so a finished response does not cancel it
		ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
		defer cancel()
		if err := c.Send(ctx, ev); err != nil {
			metrics.NotificationFailures.WithLabelValues(string(ev.Type)).Inc()
			logger.Log.Warn("notification failed",
				"component", "notify",
				"event", ev.Type,
				"project_id", ev.ProjectID,
				"error", err)
		}
	}()
}

// Send posts ev synchronously.
func (c *Client) Send(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(Event) {}
