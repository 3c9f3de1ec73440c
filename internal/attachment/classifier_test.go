package attachment

import (
	"errors"
	"testing"

	"marketplace-chat/internal/domain"
	chat_errors "marketplace-chat/pkg/errors"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		mimeType string
		want     domain.AttachmentKind
	}{
		{"image/png", domain.AttachmentKindImage},
		{"image/jpeg", domain.AttachmentKindImage},
		{"IMAGE/JPEG", domain.AttachmentKindImage},
		{"audio/webm", domain.AttachmentKindAudio},
		{"audio/mpeg; codecs=mp3", domain.AttachmentKindAudio},
		{"application/pdf", domain.AttachmentKindDocument},
		{"text/plain", domain.AttachmentKindDocument},
		{"text/csv", domain.AttachmentKindDocument},
		{"video/mp4", domain.AttachmentKindOther},
		{"application/zip", domain.AttachmentKindOther},
		{"", domain.AttachmentKindOther},
	}

	for _, tc := range cases {
		if got := Classify(tc.mimeType); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.mimeType, got, tc.want)
		}
	}
}

func TestPolicyValidateFile(t *testing.T) {
	p := Policy{MaxFileBytes: 100, MaxFiles: 2}

	if err := p.ValidateFile("ok.png", 100); err != nil {
		t.Fatalf("within limit: %v", err)
	}

	err := p.ValidateFile("big.png", 101)
	if !errors.Is(err, chat_errors.ErrAttachmentRejected) {
		t.Fatalf("oversize: got %v, want ErrAttachmentRejected", err)
	}

	err = p.ValidateFile("empty.png", 0)
	if !errors.Is(err, chat_errors.ErrAttachmentRejected) {
		t.Fatalf("empty: got %v, want ErrAttachmentRejected", err)
	}
}

func TestPolicyValidateCount(t *testing.T) {
	p := Policy{MaxFiles: 2}

	if err := p.ValidateCount(2); err != nil {
		t.Fatalf("at limit: %v", err)
	}
	if err := p.ValidateCount(3); !errors.Is(err, chat_errors.ErrAttachmentRejected) {
		t.Fatalf("over limit: got %v, want ErrAttachmentRejected", err)
	}
}
