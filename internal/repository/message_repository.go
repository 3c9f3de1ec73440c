package repository

import (
	"context"
	"errors"
	"time"

	"marketplace-chat/internal/domain/message"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, msg *message.Message) error {
	res := r.db.WithContext(ctx).Create(msg)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chat_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var msg message.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, chat_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return msg, nil
}

func (r *PostgresMessageRepository) Page(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	var messages []message.Message
	var total int64

	q := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ?", conversationID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *PostgresMessageRepository) MarkReadExcludingSender(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) CountAfter(ctx context.Context, conversationID uuid.UUID, after time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ? AND created_at > ?", conversationID, after).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
