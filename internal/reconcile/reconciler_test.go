package reconcile

import (
	"testing"
	"time"

	"marketplace-chat/internal/domain"
	"marketplace-chat/internal/domain/message"

	"github.com/google/uuid"
)

func msg(sender uuid.UUID, content string) message.Message {
	return message.Message{
		ID:        uuid.New(),
		SenderID:  sender,
		Content:   content,
		Type:      domain.MessageTypeText,
		CreatedAt: time.Now(),
	}
}

func TestApplyDedupsByID(t *testing.T) {
	tl := NewTimeline()
	sender := uuid.New()

	m := msg(sender, "hello")
	if !tl.Apply(m) {
		t.Fatal("first delivery reported as duplicate")
	}
	if tl.Apply(m) {
		t.Fatal("second delivery reported as new")
	}
	if tl.Len() != 1 {
		t.Fatalf("len = %d, want 1", tl.Len())
	}
}

func TestDuplicateDeliveryRefreshesInPlace(t *testing.T) {
	tl := NewTimeline()
	sender := uuid.New()

	m := msg(sender, "hello")
	tl.Apply(m)

	// The same message arrives again via the personal room, now read.
	m.IsRead = true
	tl.Apply(m)

	got := tl.Messages()
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if !got[0].IsRead {
		t.Error("refresh did not carry the read flag")
	}
}

func TestSnapshotThenPushKeepsOrder(t *testing.T) {
	tl := NewTimeline()
	sender := uuid.New()

	m1 := msg(sender, "one")
	m2 := msg(sender, "two")
	tl.LoadSnapshot([]message.Message{m1, m2})

	// m2 also arrives over the socket after the snapshot landed.
	if tl.Apply(m2) {
		t.Error("snapshot member reported as new")
	}

	m3 := msg(sender, "three")
	if !tl.Apply(m3) {
		t.Error("fresh push reported as duplicate")
	}

	got := tl.Messages()
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("message %d = %q, want %q", i, got[i].Content, w)
		}
	}
}

func TestLoadSnapshotResets(t *testing.T) {
	tl := NewTimeline()
	sender := uuid.New()

	tl.Apply(msg(sender, "stale"))

	fresh := msg(sender, "fresh")
	tl.LoadSnapshot([]message.Message{fresh})

	got := tl.Messages()
	if len(got) != 1 || got[0].Content != "fresh" {
		t.Fatalf("timeline = %+v, want only the snapshot", got)
	}
}

func TestMarkAllReadSkipsOwnMessages(t *testing.T) {
	tl := NewTimeline()
	alice := uuid.New()
	bob := uuid.New()

	mine := msg(alice, "from alice")
	theirs := msg(bob, "from bob")
	tl.LoadSnapshot([]message.Message{mine, theirs})

	// Bob read the thread; alice's copy updates her own outbound message only.
	tl.MarkAllRead(bob)

	for _, m := range tl.Messages() {
		switch m.SenderID {
		case alice:
			if !m.IsRead {
				t.Error("alice's message not flipped by bob's read")
			}
		case bob:
			if m.IsRead {
				t.Error("bob's own message flipped")
			}
		}
	}
}
