package services

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"marketplace-chat/internal/domain"
	"marketplace-chat/internal/domain/conversation"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"

	"github.com/google/uuid"
)

// MessagingService orchestrates the conversation registry and the message
// ledger. All authorization is participant-based: a caller only ever sees
// conversations they belong to.
type MessagingService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	broadcaster   Broadcaster
	logger        *logger.Logger
}

func NewMessagingService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	broadcaster Broadcaster,
	l *logger.Logger,
) *MessagingService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &MessagingService{
		conversations: conversations,
		messages:      messages,
		broadcaster:   broadcaster,
		logger:        l,
	}
}

// ConversationPage is a page of the caller's active conversations.
type ConversationPage struct {
	Conversations []conversation.Conversation
	Total         int64
	Page          int
	Limit         int
}

// MessagePage is a page of a conversation's history, chronological order.
type MessagePage struct {
	Conversation conversation.Conversation
	Messages     []message.Message
	Total        int64
	Page         int
	Limit        int
}

// CreateConversation opens (or re-uses) the conversation between the caller
// and other. Opening is idempotent per unordered pair: repeated calls return
// the existing conversation and skip the side effects below. When a new row
// is created and bookingID is set, a system message records the booking link;
// initialMessage, when present, is then sent as the caller's first message.
func (s *MessagingService) CreateConversation(ctx context.Context, caller, other uuid.UUID, bookingID *string, initialMessage string) (conversation.Conversation, bool, error) {
	if caller == other {
		return conversation.Conversation{}, false, chat_errors.ErrInvalidInput
	}

	conv, created, err := s.conversations.FindOrCreate(ctx, caller, other, bookingID)
	if err != nil {
		return conversation.Conversation{}, false, err
	}
	if !created {
		return conv, false, nil
	}

	if bookingID != nil && *bookingID != "" {
		sysMsg := message.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       caller,
			Content:        "Conversation opened for booking " + *bookingID,
			Type:           domain.MessageTypeSystem,
			CreatedAt:      time.Now(),
		}
		if err := s.messages.Create(ctx, &sysMsg); err != nil {
			s.logf(ctx, "system message for conversation %s not recorded: %s", conv.ID, err)
		}
	}

	s.broadcaster.ConversationCreated(conv, other)

	if strings.TrimSpace(initialMessage) != "" {
		if _, err := s.Send(ctx, caller, conv.ID, initialMessage, nil, uuid.NullUUID{}); err != nil {
			return conversation.Conversation{}, false, err
		}
		conv, err = s.conversations.GetByID(ctx, conv.ID)
		if err != nil {
			return conversation.Conversation{}, false, err
		}
	}

	return conv, true, nil
}

// sendTarget loads the conversation a caller wants to append to. Inactive
// conversations read as gone; outsiders are refused outright.
func (s *MessagingService) sendTarget(ctx context.Context, caller, conversationID uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !conv.IsActive {
		return conversation.Conversation{}, chat_errors.ErrNotFound
	}
	if !conv.HasParticipant(caller) {
		return conversation.Conversation{}, chat_errors.ErrForbidden
	}
	return conv, nil
}

// AuthorizeSend reports whether the caller may append to the conversation.
// Callers with side effects of their own (attachment uploads) run this before
// touching storage.
func (s *MessagingService) AuthorizeSend(ctx context.Context, caller, conversationID uuid.UUID) error {
	_, err := s.sendTarget(ctx, caller, conversationID)
	return err
}

// Send appends a message to the conversation. The message row is the source
// of truth; the registry updates (last-message snapshot, unread counter) are
// best-effort and a failure there is logged, not surfaced, because the ledger
// write already succeeded.
func (s *MessagingService) Send(ctx context.Context, caller, conversationID uuid.UUID, content string, attachments []message.Attachment, replyTo uuid.NullUUID) (message.Message, error) {
	conv, err := s.sendTarget(ctx, caller, conversationID)
	if err != nil {
		return message.Message{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return message.Message{}, chat_errors.ErrInvalidInput
	}
	if utf8.RuneCountInString(content) > message.MaxContentLength {
		return message.Message{}, chat_errors.ErrInvalidInput
	}

	if replyTo.Valid {
		target, err := s.messages.GetByID(ctx, replyTo.UUID)
		if err != nil || target.ConversationID != conv.ID {
			return message.Message{}, chat_errors.ErrInvalidInput
		}
	}

	msgType := message.DeriveType(attachments)
	if content == "" {
		content = message.Placeholder(msgType)
	}

	msg := message.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       caller,
		Content:        content,
		Type:           msgType,
		ReplyToID:      replyTo,
		CreatedAt:      time.Now(),
		Attachments:    attachments,
	}
	for i := range msg.Attachments {
		msg.Attachments[i].MessageID = msg.ID
	}

	if err := s.messages.Create(ctx, &msg); err != nil {
		return message.Message{}, err
	}

	recipient := conv.OtherParticipant(caller)

	snapshot := conversation.LastMessage{
		Content:  sql.NullString{String: msg.Content, Valid: true},
		SenderID: uuid.NullUUID{UUID: caller, Valid: true},
		SentAt:   sql.NullTime{Time: msg.CreatedAt, Valid: true},
	}
	if err := s.conversations.UpdateLastMessage(ctx, conv.ID, snapshot); err != nil {
		s.logf(ctx, "last-message snapshot for conversation %s not updated: %s", conv.ID, err)
	}
	if err := s.conversations.IncrementUnread(ctx, conv.ID, recipient); err != nil {
		s.logf(ctx, "unread counter for conversation %s not incremented: %s", conv.ID, err)
	}

	s.broadcaster.MessageCreated(msg, recipient)
	return msg, nil
}

// List returns the caller's active conversations, newest activity first.
func (s *MessagingService) List(ctx context.Context, caller uuid.UUID, page, limit int) (ConversationPage, error) {
	page, limit = normalizePaging(page, limit)

	convs, total, err := s.conversations.ListActive(ctx, caller, page, limit)
	if err != nil {
		return ConversationPage{}, err
	}
	return ConversationPage{Conversations: convs, Total: total, Page: page, Limit: limit}, nil
}

// GetConversation loads one conversation for the caller. Soft-deleted
// conversations remain readable; that is the audit path.
func (s *MessagingService) GetConversation(ctx context.Context, caller, conversationID uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !conv.HasParticipant(caller) {
		return conversation.Conversation{}, chat_errors.ErrNotFound
	}
	return conv, nil
}

// History returns one page of the conversation in chronological order and, on
// the first page of an active conversation, marks the caller caught up.
func (s *MessagingService) History(ctx context.Context, caller, conversationID uuid.UUID, page, limit int) (MessagePage, error) {
	conv, err := s.GetConversation(ctx, caller, conversationID)
	if err != nil {
		return MessagePage{}, err
	}

	page, limit = normalizePaging(page, limit)

	msgs, total, err := s.messages.Page(ctx, conversationID, page, limit)
	if err != nil {
		return MessagePage{}, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if conv.IsActive && page == 1 {
		if err := s.MarkRead(ctx, caller, conversationID); err != nil {
			s.logf(ctx, "mark-read on open of conversation %s failed: %s", conversationID, err)
		}
	}

	return MessagePage{Conversation: conv, Messages: msgs, Total: total, Page: page, Limit: limit}, nil
}

// MarkRead flips every unread message the caller received and zeroes their
// counter. The counter reset runs even when no message row changed, so a
// drifted counter self-corrects here.
func (s *MessagingService) MarkRead(ctx context.Context, caller, conversationID uuid.UUID) error {
	conv, err := s.GetConversation(ctx, caller, conversationID)
	if err != nil {
		return err
	}

	changed, err := s.messages.MarkReadExcludingSender(ctx, conversationID, caller)
	if err != nil {
		return err
	}
	if err := s.conversations.ResetUnread(ctx, conversationID, caller); err != nil {
		return err
	}

	if changed > 0 {
		s.broadcaster.MessagesRead(conversationID, caller, conv.OtherParticipant(caller))
	}
	return nil
}

// Delete soft-deletes the conversation. History stays in the ledger.
func (s *MessagingService) Delete(ctx context.Context, caller, conversationID uuid.UUID) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(caller) {
		return chat_errors.ErrNotFound
	}
	return s.conversations.SoftDelete(ctx, conversationID)
}

// UnreadTotal sums the caller's unread counters across active conversations,
// for the badge on the marketplace shell.
func (s *MessagingService) UnreadTotal(ctx context.Context, caller uuid.UUID) (int64, error) {
	return s.conversations.UnreadTotal(ctx, caller)
}

// IsParticipant reports whether caller belongs to the conversation. The
// realtime hub uses it to authorize room joins.
func (s *MessagingService) IsParticipant(ctx context.Context, caller, conversationID uuid.UUID) (bool, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return false, err
	}
	return conv.IsActive && conv.HasParticipant(caller), nil
}

func (s *MessagingService) logf(ctx context.Context, format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.ErrorfCtx(ctx, format, args...)
	}
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return page, limit
}
