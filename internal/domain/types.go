package domain

type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeImage    MessageType = "IMAGE"
	MessageTypeAudio    MessageType = "AUDIO"
	MessageTypeDocument MessageType = "DOCUMENT"
	MessageTypeFile     MessageType = "FILE"
	MessageTypeSystem   MessageType = "SYSTEM"
)

type AttachmentKind string

const (
	AttachmentKindImage    AttachmentKind = "IMAGE"
	AttachmentKindAudio    AttachmentKind = "AUDIO"
	AttachmentKindDocument AttachmentKind = "DOCUMENT"
	AttachmentKindOther    AttachmentKind = "OTHER"
)
