package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"marketplace-chat/internal/domain"
	"marketplace-chat/internal/domain/conversation"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/google/uuid"
)

type recordedEvent struct {
	kind           string
	conversationID uuid.UUID
	messageID      uuid.UUID
	recipientID    uuid.UUID
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) MessageCreated(msg message.Message, recipientID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{kind: "message", conversationID: msg.ConversationID, messageID: msg.ID, recipientID: recipientID})
}

func (b *recordingBroadcaster) ConversationCreated(conv conversation.Conversation, recipientID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{kind: "conversation", conversationID: conv.ID, recipientID: recipientID})
}

func (b *recordingBroadcaster) MessagesRead(conversationID, readerID uuid.UUID, recipientID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{kind: "read", conversationID: conversationID, recipientID: recipientID})
}

func (b *recordingBroadcaster) byKind(kind string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func newTestService() (*MessagingService, *recordingBroadcaster) {
	bc := &recordingBroadcaster{}
	svc := NewMessagingService(
		repository.NewMemoryConversationRepository(),
		repository.NewMemoryMessageRepository(),
		bc,
		nil,
	)
	return svc, bc
}

func TestConversationLifecycle(t *testing.T) {
	svc, bc := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	conv, created, err := svc.CreateConversation(ctx, alice, bob, nil, "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh conversation")
	}

	// Alice sends text.
	m1, err := svc.Send(ctx, alice, conv.ID, "hello", nil, uuid.NullUUID{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m1.Type != domain.MessageTypeText {
		t.Errorf("type = %s, want TEXT", m1.Type)
	}

	got, err := svc.GetConversation(ctx, bob, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.UnreadFor(bob) != 1 {
		t.Errorf("bob unread = %d, want 1", got.UnreadFor(bob))
	}
	if got.LastMessage.Content.String != "hello" {
		t.Errorf("last message = %q, want hello", got.LastMessage.Content.String)
	}

	// Bob replies with an image and no text; placeholder content kicks in.
	att := message.NewUploadedAttachment(domain.AttachmentKindImage, "x.jpg", "x.jpg", "image/jpeg", 10, "https://cdn/x.jpg", 0)
	m2, err := svc.Send(ctx, bob, conv.ID, "", []message.Attachment{att}, uuid.NullUUID{})
	if err != nil {
		t.Fatalf("Send image: %v", err)
	}
	if m2.Type != domain.MessageTypeImage {
		t.Errorf("type = %s, want IMAGE", m2.Type)
	}
	if m2.Content != "image" {
		t.Errorf("content = %q, want placeholder", m2.Content)
	}
	if m2.Attachments[0].MessageID != m2.ID {
		t.Error("attachment not linked to its message")
	}

	got, _ = svc.GetConversation(ctx, alice, conv.ID)
	if got.UnreadFor(alice) != 1 {
		t.Errorf("alice unread = %d, want 1", got.UnreadFor(alice))
	}
	if got.UnreadFor(bob) != 1 {
		t.Errorf("bob unread = %d, want 1 still", got.UnreadFor(bob))
	}

	// Alice catches up.
	if err := svc.MarkRead(ctx, alice, conv.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	got, _ = svc.GetConversation(ctx, alice, conv.ID)
	if got.UnreadFor(alice) != 0 {
		t.Errorf("alice unread after MarkRead = %d, want 0", got.UnreadFor(alice))
	}

	// The list shows the image message as the snapshot.
	page, err := svc.List(ctx, alice, 1, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Conversations) != 1 || page.Total != 1 {
		t.Fatalf("list = %d conversations, total %d", len(page.Conversations), page.Total)
	}
	if page.Conversations[0].LastMessage.Content.String != "image" {
		t.Errorf("snapshot = %q, want image", page.Conversations[0].LastMessage.Content.String)
	}

	if msgs := bc.byKind("message"); len(msgs) != 2 {
		t.Errorf("message events = %d, want 2", len(msgs))
	}
	reads := bc.byKind("read")
	if len(reads) != 1 || reads[0].recipientID != bob {
		t.Errorf("read events = %+v, want one addressed to bob", reads)
	}
}

func TestCreateConversationIsIdempotent(t *testing.T) {
	svc, bc := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	first, created, err := svc.CreateConversation(ctx, alice, bob, nil, "hi bob")
	if err != nil || !created {
		t.Fatalf("first open: created=%v err=%v", created, err)
	}

	// Reversed order, with an initial message that must NOT be sent again.
	second, created, err := svc.CreateConversation(ctx, bob, alice, nil, "hi alice")
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if created {
		t.Fatal("second open reported a fresh conversation")
	}
	if second.ID != first.ID {
		t.Errorf("ids differ: %s vs %s", first.ID, second.ID)
	}

	hist, err := svc.History(ctx, alice, first.ID, 1, 50)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if hist.Total != 1 {
		t.Errorf("messages = %d, want only the first opener's greeting", hist.Total)
	}
	if len(bc.byKind("conversation")) != 1 {
		t.Errorf("conversation events = %d, want 1", len(bc.byKind("conversation")))
	}
}

func TestCreateConversationWithBookingAddsSystemMessage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	booking := "bk-2041"

	conv, _, err := svc.CreateConversation(ctx, alice, bob, &booking, "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if !conv.BookingID.Valid || conv.BookingID.String != booking {
		t.Errorf("booking id = %+v", conv.BookingID)
	}

	hist, err := svc.History(ctx, alice, conv.ID, 1, 50)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist.Messages) != 1 {
		t.Fatalf("messages = %d, want the system message", len(hist.Messages))
	}
	if hist.Messages[0].Type != domain.MessageTypeSystem {
		t.Errorf("type = %s, want SYSTEM", hist.Messages[0].Type)
	}
	if !strings.Contains(hist.Messages[0].Content, booking) {
		t.Errorf("content = %q, want booking reference", hist.Messages[0].Content)
	}
}

func TestSendAuthorization(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	eve := uuid.New()

	conv, _, err := svc.CreateConversation(ctx, alice, bob, nil, "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if _, err := svc.Send(ctx, eve, conv.ID, "hi", nil, uuid.NullUUID{}); !errors.Is(err, chat_errors.ErrForbidden) {
		t.Errorf("outsider send err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Send(ctx, alice, uuid.New(), "hi", nil, uuid.NullUUID{}); !errors.Is(err, chat_errors.ErrNotFound) {
		t.Errorf("unknown conversation err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Send(ctx, alice, conv.ID, "   ", nil, uuid.NullUUID{}); !errors.Is(err, chat_errors.ErrInvalidInput) {
		t.Errorf("blank send err = %v, want ErrInvalidInput", err)
	}
	long := strings.Repeat("a", message.MaxContentLength+1)
	if _, err := svc.Send(ctx, alice, conv.ID, long, nil, uuid.NullUUID{}); !errors.Is(err, chat_errors.ErrInvalidInput) {
		t.Errorf("oversized send err = %v, want ErrInvalidInput", err)
	}
}

func TestSendContentLimitCountsRunes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	conv, _, err := svc.CreateConversation(ctx, alice, bob, nil, "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	// Multi-byte text at the limit is fine even though it exceeds the
	// limit in bytes.
	atLimit := strings.Repeat("é", message.MaxContentLength)
	if _, err := svc.Send(ctx, alice, conv.ID, atLimit, nil, uuid.NullUUID{}); err != nil {
		t.Errorf("at-limit send err = %v", err)
	}

	over := strings.Repeat("é", message.MaxContentLength+1)
	if _, err := svc.Send(ctx, alice, conv.ID, over, nil, uuid.NullUUID{}); !errors.Is(err, chat_errors.ErrInvalidInput) {
		t.Errorf("over-limit send err = %v, want ErrInvalidInput", err)
	}
}

func TestSendReplyToMustBeInSameConversation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	c1, _, _ := svc.CreateConversation(ctx, alice, bob, nil, "")
	c2, _, _ := svc.CreateConversation(ctx, alice, carol, nil, "")

	original, err := svc.Send(ctx, bob, c1.ID, "original", nil, uuid.NullUUID{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	reply, err := svc.Send(ctx, alice, c1.ID, "reply", nil, uuid.NullUUID{UUID: original.ID, Valid: true})
	if err != nil {
		t.Fatalf("reply in same conversation: %v", err)
	}
	if !reply.ReplyToID.Valid || reply.ReplyToID.UUID != original.ID {
		t.Errorf("reply target = %+v", reply.ReplyToID)
	}

	// Replying across conversations is rejected.
	if _, err := svc.Send(ctx, alice, c2.ID, "sneaky", nil, uuid.NullUUID{UUID: original.ID, Valid: true}); !errors.Is(err, chat_errors.ErrInvalidInput) {
		t.Errorf("cross-conversation reply err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Send(ctx, alice, c1.ID, "ghost", nil, uuid.NullUUID{UUID: uuid.New(), Valid: true}); !errors.Is(err, chat_errors.ErrInvalidInput) {
		t.Errorf("missing reply target err = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteHidesFromListKeepsHistory(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	eve := uuid.New()

	conv, _, err := svc.CreateConversation(ctx, alice, bob, nil, "keep this")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if err := svc.Delete(ctx, eve, conv.ID); !errors.Is(err, chat_errors.ErrNotFound) {
		t.Errorf("outsider delete err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, alice, conv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	page, err := svc.List(ctx, bob, 1, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Conversations) != 0 {
		t.Errorf("deleted conversation still listed")
	}

	// Audit path: history stays readable.
	hist, err := svc.History(ctx, bob, conv.ID, 1, 50)
	if err != nil {
		t.Fatalf("History after delete: %v", err)
	}
	if hist.Total != 1 {
		t.Errorf("history = %d messages, want 1", hist.Total)
	}

	if _, err := svc.Send(ctx, alice, conv.ID, "too late", nil, uuid.NullUUID{}); !errors.Is(err, chat_errors.ErrNotFound) {
		t.Errorf("send into deleted err = %v, want ErrNotFound", err)
	}
}

func TestHistoryChronologicalAndMarksRead(t *testing.T) {
	svc, bc := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	conv, _, err := svc.CreateConversation(ctx, alice, bob, nil, "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.Send(ctx, alice, conv.ID, text, nil, uuid.NullUUID{}); err != nil {
			t.Fatalf("Send %s: %v", text, err)
		}
	}

	hist, err := svc.History(ctx, bob, conv.ID, 1, 50)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []string{"one", "two", "three"}
	for i, m := range hist.Messages {
		if m.Content != want[i] {
			t.Errorf("message %d = %q, want %q", i, m.Content, want[i])
		}
	}

	// Opening the first page marked bob caught up.
	got, _ := svc.GetConversation(ctx, bob, conv.ID)
	if got.UnreadFor(bob) != 0 {
		t.Errorf("bob unread after open = %d, want 0", got.UnreadFor(bob))
	}
	if len(bc.byKind("read")) != 1 {
		t.Errorf("read events = %d, want 1", len(bc.byKind("read")))
	}

	// A second open changes nothing and stays silent.
	if _, err := svc.History(ctx, bob, conv.ID, 1, 50); err != nil {
		t.Fatalf("second History: %v", err)
	}
	if len(bc.byKind("read")) != 1 {
		t.Errorf("read events after re-open = %d, want 1", len(bc.byKind("read")))
	}
}

func TestUnreadTotalAcrossConversations(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	c1, _, _ := svc.CreateConversation(ctx, bob, alice, nil, "")
	c2, _, _ := svc.CreateConversation(ctx, carol, alice, nil, "")

	for i := 0; i < 2; i++ {
		if _, err := svc.Send(ctx, bob, c1.ID, "ping", nil, uuid.NullUUID{}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if _, err := svc.Send(ctx, carol, c2.ID, "pong", nil, uuid.NullUUID{}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	total, err := svc.UnreadTotal(ctx, alice)
	if err != nil {
		t.Fatalf("UnreadTotal: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestIsParticipant(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	eve := uuid.New()

	conv, _, _ := svc.CreateConversation(ctx, alice, bob, nil, "")

	if ok, err := svc.IsParticipant(ctx, alice, conv.ID); err != nil || !ok {
		t.Errorf("alice: ok=%v err=%v", ok, err)
	}
	if ok, _ := svc.IsParticipant(ctx, eve, conv.ID); ok {
		t.Error("outsider reported as participant")
	}

	if err := svc.Delete(ctx, alice, conv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := svc.IsParticipant(ctx, alice, conv.ID); ok {
		t.Error("deleted conversation still joinable")
	}
}
