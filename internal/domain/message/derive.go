package message

import "marketplace-chat/internal/domain"

// DeriveType is a pure function of the attachments: a uniform set keeps its
// kind, a mixed set degrades to FILE, no attachments means TEXT.
func DeriveType(attachments []Attachment) domain.MessageType {
	if len(attachments) == 0 {
		return domain.MessageTypeText
	}

	first := attachments[0].Kind
	for _, a := range attachments[1:] {
		if a.Kind != first {
			return domain.MessageTypeFile
		}
	}

	switch first {
	case domain.AttachmentKindImage:
		return domain.MessageTypeImage
	case domain.AttachmentKindAudio:
		return domain.MessageTypeAudio
	case domain.AttachmentKindDocument:
		return domain.MessageTypeDocument
	default:
		return domain.MessageTypeFile
	}
}

// Placeholder returns the content substituted when a message carries
// attachments but no text.
func Placeholder(t domain.MessageType) string {
	switch t {
	case domain.MessageTypeImage:
		return "image"
	case domain.MessageTypeAudio:
		return "voice message"
	case domain.MessageTypeDocument:
		return "document"
	default:
		return "file"
	}
}
