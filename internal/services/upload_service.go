package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"marketplace-chat/internal/attachment"
	"marketplace-chat/internal/domain"
	"marketplace-chat/internal/domain/message"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"

	"github.com/google/uuid"
)

// ObjectStore is the slice of the S3 client the upload service needs.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, sizeBytes int64) (string, error)
}

// UploadService turns multipart attachment parts into classified, stored
// attachment records. Policy violations fail before anything is uploaded.
type UploadService struct {
	store  ObjectStore
	policy attachment.Policy
	logger *logger.Logger
}

func NewUploadService(store ObjectStore, policy attachment.Policy, l *logger.Logger) *UploadService {
	return &UploadService{store: store, policy: policy, logger: l}
}

func (s *UploadService) Policy() attachment.Policy {
	return s.policy
}

// ProcessMultipart validates, classifies and uploads every part, returning
// attachment records in their original order.
func (s *UploadService) ProcessMultipart(ctx context.Context, files []*multipart.FileHeader) ([]message.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.store == nil {
		return nil, chat_errors.ErrServiceUnavailable
	}

	if err := s.policy.ValidateCount(len(files)); err != nil {
		return nil, err
	}
	for _, fh := range files {
		if err := s.policy.ValidateFile(fh.Filename, fh.Size); err != nil {
			return nil, err
		}
	}

	attachments := make([]message.Attachment, 0, len(files))
	for i, fh := range files {
		att, err := s.storeOne(ctx, fh, i)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

func (s *UploadService) storeOne(ctx context.Context, fh *multipart.FileHeader, position int) (message.Attachment, error) {
	mimeType := fh.Header.Get("Content-Type")
	kind := attachment.Classify(mimeType)

	storedName := uuid.New().String()
	if ext := strings.ToLower(path.Ext(fh.Filename)); ext != "" {
		storedName += ext
	}
	key := objectKey(kind, storedName)

	f, err := fh.Open()
	if err != nil {
		return message.Attachment{}, fmt.Errorf("open attachment %s: %w", fh.Filename, err)
	}
	defer f.Close()

	url, err := s.store.Upload(ctx, key, mimeType, f, fh.Size)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("attachment upload failed for %s: %s", fh.Filename, err)
		}
		return message.Attachment{}, chat_errors.ErrServiceUnavailable
	}

	// Browser-recorded voice clips arrive as bare blobs without a filename.
	if kind == domain.AttachmentKindAudio && isRecordedBlob(fh.Filename) {
		return message.NewRecordedAudioAttachment(storedName, mimeType, fh.Size, url, position), nil
	}
	return message.NewUploadedAttachment(kind, storedName, fh.Filename, mimeType, fh.Size, url, position), nil
}

func isRecordedBlob(filename string) bool {
	name := strings.ToLower(strings.TrimSpace(filename))
	return name == "" || name == "blob" || strings.HasPrefix(name, "blob.")
}

// objectKey groups stored files by kind so the CDN layer can route and cache
// them separately.
func objectKey(kind domain.AttachmentKind, storedName string) string {
	switch kind {
	case domain.AttachmentKindImage:
		return "images/" + storedName
	case domain.AttachmentKindAudio:
		return "audio/" + storedName
	case domain.AttachmentKindDocument:
		return "documents/" + storedName
	default:
		return "files/" + storedName
	}
}
