package httpdto

import (
	"time"

	"marketplace-chat/internal/domain/message"
)

type MessageView struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	SenderID       string           `json:"sender_id"`
	Content        string           `json:"content"`
	Type           string           `json:"type"`
	ReplyToID      string           `json:"reply_to_id,omitempty"`
	IsRead         bool             `json:"is_read"`
	Attachments    []AttachmentView `json:"attachments,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type AttachmentView struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

func FromMessage(m message.Message) MessageView {
	v := MessageView{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		Content:        m.Content,
		Type:           string(m.Type),
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
	if m.ReplyToID.Valid {
		v.ReplyToID = m.ReplyToID.UUID.String()
	}
	for _, a := range m.Attachments {
		av := AttachmentView{
			ID:           a.ID.String(),
			Type:         string(a.Kind),
			Filename:     a.StoredName,
			OriginalName: a.OriginalName,
			MimeType:     a.MimeType,
			Size:         a.SizeBytes,
			URL:          a.URL,
		}
		if a.ThumbnailURL.Valid {
			av.ThumbnailURL = a.ThumbnailURL.String
		}
		v.Attachments = append(v.Attachments, av)
	}
	return v
}

func FromMessages(msgs []message.Message) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, FromMessage(m))
	}
	return views
}
