// Package messages stores the comments customers leave on their projects.
// A message can be edited or deleted only until the office processes it.
package messages

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/store"
)

const Collection = "customerMessages"

// stillUnread guards edits against a status change made after the message
// was read.
var stillUnread = store.Condition{Field: "status", Value: string(models.MessageUnread)}

var (
	ErrNotFound  = errors.New("message not found")
	ErrImmutable = errors.New("message was already processed")
	ErrEmpty     = errors.New("subject and body must not be empty")
)

type Service struct {
	repo     store.Repository
	notifier notify.Notifier
	policy   *bluemonday.Policy
	now      func() time.Time
}

func NewService(repo store.Repository, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		policy:   bluemonday.StrictPolicy(),
		now:      time.Now,
	}
}

// sanitize strips all markup; the result is plain text.
func (s *Service) sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

func (s *Service) Create(ctx context.Context, projectID, customerID string, req models.CreateMessageRequest) (*models.CustomerMessage, error) {
	now := s.now().UTC()
	msg := &models.CustomerMessage{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		CustomerID: customerID,
		FilePath:   s.sanitize(req.FilePath),
		Subject:    s.sanitize(req.Subject),
		Body:       s.sanitize(req.Body),
		Status:     models.MessageUnread,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if msg.Subject == "" || msg.Body == "" {
		return nil, ErrEmpty
	}

	if err := s.repo.Set(ctx, Collection, toDocument(msg)); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	logger.Log.Info("customer message created",
		"component", "messages",
		"project_id", projectID,
		"message_id", msg.ID)

	s.notifier.Notify(notify.Event{
		Type:       notify.EventNewMessage,
		ProjectID:  projectID,
		CustomerID: customerID,
		MessageID:  msg.ID,
		FolderPath: msg.FilePath,
	})
	return msg, nil
}

// List returns the customer's messages on the project, newest first.
func (s *Service) List(ctx context.Context, projectID, customerID string) ([]models.CustomerMessage, error) {
	q := store.Query{Collection: Collection, OrderBy: "createdAt", Descending: true}.
		Filter("projectId", projectID).
		Filter("customerId", customerID)

	docs, err := s.repo.Query(ctx, q)
	clientSort := false
	if errors.Is(err, store.ErrMissingIndex) {
		clientSort = true
		docs, err = s.repo.Query(ctx, q.WithoutOrder())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	out := make([]models.CustomerMessage, len(docs))
	for i, doc := range docs {
		out[i] = fromDocument(doc)
	}
	if clientSort {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, projectID, customerID, messageID string, req models.UpdateMessageRequest) (*models.CustomerMessage, error) {
	msg, err := s.owned(ctx, projectID, customerID, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.Editable() {
		return nil, ErrImmutable
	}

	subject, body := s.sanitize(req.Subject), s.sanitize(req.Body)
	if subject == "" || body == "" {
		return nil, ErrEmpty
	}
	msg.Subject = subject
	msg.Body = body
	msg.UpdatedAt = s.now().UTC()

	err = s.repo.SetIf(ctx, Collection, toDocument(msg), stillUnread)
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, ErrImmutable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	return msg, nil
}

func (s *Service) Delete(ctx context.Context, projectID, customerID, messageID string) error {
	msg, err := s.owned(ctx, projectID, customerID, messageID)
	if err != nil {
		return err
	}
	if !msg.Editable() {
		return ErrImmutable
	}
	err = s.repo.DeleteIf(ctx, Collection, messageID, stillUnread)
	if errors.Is(err, store.ErrConditionFailed) {
		return ErrImmutable
	}
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// owned loads a message, reporting messages of other customers or projects
// as not found.
func (s *Service) owned(ctx context.Context, projectID, customerID, messageID string) (*models.CustomerMessage, error) {
	doc, err := s.repo.Get(ctx, Collection, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	msg := fromDocument(doc)
	if msg.ProjectID != projectID || msg.CustomerID != customerID {
		return nil, ErrNotFound
	}
	return &msg, nil
}

func toDocument(m *models.CustomerMessage) store.Document {
	return store.Document{
		ID: m.ID,
		Fields: map[string]any{
			"projectId":  m.ProjectID,
			"customerId": m.CustomerID,
			"filePath":   m.FilePath,
			"subject":    m.Subject,
			"body":       m.Body,
			"status":     string(m.Status),
			"createdAt":  m.CreatedAt.UnixMilli(),
			"updatedAt":  m.UpdatedAt.UnixMilli(),
		},
	}
}

func fromDocument(doc store.Document) models.CustomerMessage {
	m := models.CustomerMessage{
		ID:         doc.ID,
		ProjectID:  doc.String("projectId"),
		CustomerID: doc.String("customerId"),
		FilePath:   doc.String("filePath"),
		Subject:    doc.String("subject"),
		Body:       doc.String("body"),
		Status:     models.MessageStatus(doc.String("status")),
	}
	if m.Status == "" {
		m.Status = models.MessageUnread
	}
	if ms, ok := doc.Int64("createdAt"); ok {
		m.CreatedAt = time.UnixMilli(ms).UTC()
	}
	if ms, ok := doc.Int64("updatedAt"); ok {
		m.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	return m
}
