package models

import "time"

type MessageStatus string

const (
	MessageUnread    MessageStatus = "unread"
	MessageProcessed MessageStatus = "processed"
)

type CustomerMessage struct {
	ID         string        `json:"id"`
	ProjectID  string        `json:"projectId"`
	CustomerID string        `json:"customerId"`
	FilePath   string        `json:"filePath,omitempty"`
	Subject    string        `json:"subject"`
	Body       string        `json:"body"`
	Status     MessageStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Editable reports whether the customer may still change or delete it.
func (m *CustomerMessage) Editable() bool {
	return m.Status == MessageUnread
}
