package attachment

import (
	"fmt"
	"mime"
	"strings"

	"marketplace-chat/internal/domain"
	chat_errors "marketplace-chat/pkg/errors"
)

// documentMimeTypes is the allow-list of MIME types treated as documents.
var documentMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/vnd.ms-powerpoint":                                     {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"text/plain": {},
	"text/csv":   {},
}

// Classify maps a declared MIME type to an attachment kind. It is a pure
// function over the declared type; byte sniffing is the CDN layer's concern.
func Classify(mimeType string) domain.AttachmentKind {
	parsed, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		parsed = strings.ToLower(strings.TrimSpace(mimeType))
	}

	switch {
	case strings.HasPrefix(parsed, "image/"):
		return domain.AttachmentKindImage
	case strings.HasPrefix(parsed, "audio/"):
		return domain.AttachmentKindAudio
	default:
		if _, ok := documentMimeTypes[parsed]; ok {
			return domain.AttachmentKindDocument
		}
		return domain.AttachmentKindOther
	}
}

// Policy bounds what a single message may carry. Violations are rejected
// before anything is persisted or uploaded.
type Policy struct {
	MaxFileBytes int64
	MaxFiles     int
}

func (p Policy) ValidateCount(n int) error {
	if p.MaxFiles > 0 && n > p.MaxFiles {
		return fmt.Errorf("%w: at most %d attachments per message", chat_errors.ErrAttachmentRejected, p.MaxFiles)
	}
	return nil
}

func (p Policy) ValidateFile(filename string, sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("%w: %s is empty", chat_errors.ErrAttachmentRejected, filename)
	}
	if p.MaxFileBytes > 0 && sizeBytes > p.MaxFileBytes {
		return fmt.Errorf("%w: %s exceeds %d bytes", chat_errors.ErrAttachmentRejected, filename, p.MaxFileBytes)
	}
	return nil
}
