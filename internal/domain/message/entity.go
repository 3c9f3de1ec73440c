package message

import (
	"database/sql"
	"time"

	"marketplace-chat/internal/domain"

	"github.com/google/uuid"
)

// MaxContentLength caps message text; longer input is rejected, not truncated.
const MaxContentLength = 2000

// Message represents the messages table. Messages are append-only; the only
// mutation after creation is the recipient flipping the read state.
type Message struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID          `gorm:"type:uuid;not null;index:idx_messages_history,priority:1"`
	SenderID       uuid.UUID          `gorm:"type:uuid;not null"`
	Content        string             `gorm:"type:text;not null"`
	Type           domain.MessageType `gorm:"type:varchar(16);default:'TEXT';not null"`
	ReplyToID      uuid.NullUUID      `gorm:"type:uuid"`
	IsRead         bool               `gorm:"default:false;not null"`
	ReadAt         sql.NullTime
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_messages_history,priority:2,sort:desc"`

	Attachments []Attachment `gorm:"foreignKey:MessageID"`
}

// Attachment represents the message_attachments table.
type Attachment struct {
	ID           uuid.UUID             `gorm:"type:uuid;primaryKey"`
	MessageID    uuid.UUID             `gorm:"type:uuid;not null;index:idx_attachments_message"`
	Kind         domain.AttachmentKind `gorm:"type:varchar(16);not null"`
	StoredName   string                `gorm:"type:text;not null"`
	OriginalName string                `gorm:"type:text;not null"`
	MimeType     string                `gorm:"type:text;not null"`
	SizeBytes    int64                 `gorm:"not null"`
	URL          string                `gorm:"type:text;not null"`
	ThumbnailURL sql.NullString
	Position     int `gorm:"not null"`
	CreatedAt    time.Time
}

func (Message) TableName() string {
	return "messages"
}

func (Attachment) TableName() string {
	return "message_attachments"
}

// NewUploadedAttachment builds an attachment from a regular file upload.
func NewUploadedAttachment(kind domain.AttachmentKind, storedName, originalName, mimeType string, sizeBytes int64, url string, position int) Attachment {
	return Attachment{
		ID:           uuid.New(),
		Kind:         kind,
		StoredName:   storedName,
		OriginalName: originalName,
		MimeType:     mimeType,
		SizeBytes:    sizeBytes,
		URL:          url,
		Position:     position,
		CreatedAt:    time.Now(),
	}
}

// NewRecordedAudioAttachment builds an attachment from a browser-recorded
// voice clip, which arrives without a usable filename.
func NewRecordedAudioAttachment(storedName, mimeType string, sizeBytes int64, url string, position int) Attachment {
	return Attachment{
		ID:           uuid.New(),
		Kind:         domain.AttachmentKindAudio,
		StoredName:   storedName,
		OriginalName: "voice-" + storedName,
		MimeType:     mimeType,
		SizeBytes:    sizeBytes,
		URL:          url,
		Position:     position,
		CreatedAt:    time.Now(),
	}
}
