package message

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"whatsapp-console/internal/conversation"
	"whatsapp-console/internal/push"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("message: not found")
	ErrInvalidArgument = errors.New("message: invalid argument")
	ErrEmptyMessage    = errors.New("message: body or media required")
)

// Repository is the persistence contract for messages.
type Repository interface {
	ListByConversation(ctx context.Context, conversationID string, limit int, beforeID string) ([]Message, error)
	Get(ctx context.Context, id string) (Message, error)
	Insert(ctx context.Context, m Message) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateMedia(ctx context.Context, id string, media *Media) error
	Delete(ctx context.Context, id string) error
}

// Deliverer hands outbound messages to the WhatsApp Business API.
type Deliverer interface {
	SendText(ctx context.Context, toPhone, body string) error
	SendMedia(ctx context.Context, toPhone, mediaURL, caption string) error
}

type Service struct {
	repo      Repository
	convs     *conversation.Service
	deliverer Deliverer
	publisher push.Publisher
	log       *slog.Logger
	clock     func() time.Time
}

func NewService(repo Repository, convs *conversation.Service, deliverer Deliverer, publisher push.Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		convs:     convs,
		deliverer: deliverer,
		publisher: publisher,
		log:       log,
		clock:     time.Now,
	}
}

const defaultPageSize = 50
const maxPageSize = 200

// ListByConversation pages a thread newest-first. beforeID is the
// cursor: pass the oldest id of the previous page to fetch older rows.
func (s *Service) ListByConversation(ctx context.Context, conversationID string, limit int, beforeID string) ([]Message, error) {
	if conversationID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repo.ListByConversation(ctx, conversationID, limit, beforeID)
}

func (s *Service) Get(ctx context.Context, id string) (Message, error) {
	if id == "" {
		return Message{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, id)
}

type SendRequest struct {
	Body      string `json:"body"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	ReplyToID string `json:"reply_to_id,omitempty"`
}

// Send records an outbound message and delivers it. The row is written
// as pending first so a delivery failure still leaves a visible failed
// message in the thread instead of silently dropping it.
func (s *Service) Send(ctx context.Context, conversationID, senderID string, req SendRequest) (Message, error) {
	if conversationID == "" {
		return Message{}, ErrInvalidArgument
	}
	body := strings.TrimSpace(req.Body)
	if body == "" && req.MediaURL == "" {
		return Message{}, ErrEmptyMessage
	}

	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return Message{}, err
	}

	now := s.clock().UTC()
	m := Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Direction:      DirectionOutbound,
		Body:           body,
		ReplyToID:      req.ReplyToID,
		SenderID:       senderID,
		Status:         StatusPending,
		CreatedAt:      now,
	}
	if req.MediaURL != "" {
		m.Media = &Media{
			Type:   req.MediaType,
			Status: MediaStatusReady,
			URL:    req.MediaURL,
		}
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return Message{}, err
	}

	if req.MediaURL != "" {
		err = s.deliverer.SendMedia(ctx, conv.Phone, req.MediaURL, body)
	} else {
		err = s.deliverer.SendText(ctx, conv.Phone, body)
	}
	if err != nil {
		if uerr := s.repo.UpdateStatus(ctx, m.ID, StatusFailed); uerr != nil {
			s.log.Error("failed message status update failed", "message_id", m.ID, "err", uerr)
		}
		m.Status = StatusFailed
		return m, err
	}

	if err := s.repo.UpdateStatus(ctx, m.ID, StatusSent); err != nil {
		s.log.Error("sent message status update failed", "message_id", m.ID, "err", err)
	}
	m.Status = StatusSent

	if err := s.convs.TouchLastMessage(ctx, conv.ID, snippetFor(m), now); err != nil {
		s.log.Warn("conversation snippet update failed", "conversation_id", conv.ID, "err", err)
	}
	s.publish(ctx, push.EventMessageOutgoing, conv.ID, m.ID)
	return m, nil
}

type InboundMessage struct {
	Phone       string
	DisplayName string
	Body        string
	Media       *Media
	ReplyToID   string
	ReceivedAt  time.Time
}

// RecordInbound stores a message delivered by the WhatsApp webhook,
// creating the conversation on first contact.
func (s *Service) RecordInbound(ctx context.Context, in InboundMessage) (Message, error) {
	if in.Phone == "" {
		return Message{}, ErrInvalidArgument
	}
	if strings.TrimSpace(in.Body) == "" && in.Media == nil {
		return Message{}, ErrEmptyMessage
	}

	conv, err := s.convs.EnsureByPhone(ctx, in.Phone, in.DisplayName)
	if err != nil {
		return Message{}, err
	}

	at := in.ReceivedAt
	if at.IsZero() {
		at = s.clock()
	}
	at = at.UTC()

	m := Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Direction:      DirectionInbound,
		Body:           strings.TrimSpace(in.Body),
		Media:          in.Media,
		ReplyToID:      in.ReplyToID,
		Status:         StatusDelivered,
		CreatedAt:      at,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return Message{}, err
	}

	if err := s.convs.TouchLastMessage(ctx, conv.ID, snippetFor(m), at); err != nil {
		s.log.Warn("conversation snippet update failed", "conversation_id", conv.ID, "err", err)
	}
	s.publish(ctx, push.EventMessageIncoming, conv.ID, m.ID)
	return m, nil
}

// UpdateMedia records the outcome of media processing.
func (s *Service) UpdateMedia(ctx context.Context, id string, media Media) (Message, error) {
	if id == "" {
		return Message{}, ErrInvalidArgument
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if err := s.repo.UpdateMedia(ctx, id, &media); err != nil {
		return Message{}, err
	}
	m.Media = &media
	s.publish(ctx, push.EventMessageMediaUpdated, m.ConversationID, m.ID)
	return m, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) error {
	if id == "" {
		return ErrInvalidArgument
	}
	switch status {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
	default:
		return ErrInvalidArgument
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// Delete removes a message permanently and signals clients via event.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, push.EventMessageDeleted, m.ConversationID, m.ID)
	return nil
}

func (s *Service) publish(ctx context.Context, event, conversationID, messageID string) {
	if s.publisher == nil {
		return
	}
	ev := push.Event{Event: event, Data: push.MessageData(conversationID, messageID)}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		// Push is best-effort; clients recover by refetching.
		s.log.Warn("push publish failed", "event", event, "err", err)
	}
}

func snippetFor(m Message) string {
	if m.Body != "" {
		return m.Body
	}
	if m.Media != nil {
		if m.Media.Type != "" {
			return "[" + m.Media.Type + "]"
		}
		return "[media]"
	}
	return ""
}
