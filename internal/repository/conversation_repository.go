package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketplace-chat/internal/domain/conversation"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) FindOrCreate(ctx context.Context, a, b uuid.UUID, bookingID *string) (conversation.Conversation, bool, error) {
	if a == b {
		return conversation.Conversation{}, false, chat_errors.ErrInvalidInput
	}
	pa, pb := conversation.NormalizePair(a, b)

	found, err := r.findActivePair(ctx, pa, pb)
	if err == nil {
		return found, false, nil
	}
	if !errors.Is(err, chat_errors.ErrNotFound) {
		return conversation.Conversation{}, false, err
	}

	now := time.Now()
	c := conversation.Conversation{
		ID:           uuid.New(),
		ParticipantA: pa,
		ParticipantB: pb,
		UnreadCount:  map[string]int64{pa.String(): 0, pb.String(): 0},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if bookingID != nil && *bookingID != "" {
		c.BookingID = sql.NullString{String: *bookingID, Valid: true}
	}

	res := r.db.WithContext(ctx).Create(&c)
	if res.Error != nil {
		// Lost the race against a concurrent creator for the same pair;
		// the partial unique index guarantees the winner exists.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			found, err := r.findActivePair(ctx, pa, pb)
			if err != nil {
				return conversation.Conversation{}, false, err
			}
			return found, false, nil
		}
		return conversation.Conversation{}, false, res.Error
	}
	return c, true, nil
}

func (r *PostgresConversationRepository) findActivePair(ctx context.Context, pa, pb uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_a = ? AND participant_b = ? AND is_active = ?", pa, pb, true).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, chat_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, chat_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) ListActive(ctx context.Context, participantID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	var conversations []conversation.Conversation
	var total int64

	q := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("(participant_a = ? OR participant_b = ?) AND is_active = ?", participantID, participantID, true)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&conversations).Error; err != nil {
		return nil, 0, err
	}

	return conversations, total, nil
}

func (r *PostgresConversationRepository) UpdateLastMessage(ctx context.Context, id uuid.UUID, snapshot conversation.LastMessage) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_content":   snapshot.Content,
			"last_message_sender_id": snapshot.SenderID,
			"last_message_sent_at":   snapshot.SentAt,
			"updated_at":             time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chat_errors.ErrNotFound
	}
	return nil
}

// IncrementUnread bumps one participant's counter in a single statement so
// concurrent sends into the same conversation cannot lose an update.
func (r *PostgresConversationRepository) IncrementUnread(ctx context.Context, id, participantID uuid.UUID) error {
	key := participantID.String()
	res := r.db.WithContext(ctx).Exec(`
		UPDATE conversations
		SET unread_count = jsonb_set(
			COALESCE(unread_count, '{}'::jsonb),
			ARRAY[?],
			(COALESCE(unread_count->>?, '0')::bigint + 1)::text::jsonb
		)
		WHERE id = ? AND is_active = TRUE`, key, key, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) ResetUnread(ctx context.Context, id, participantID uuid.UUID) error {
	key := participantID.String()
	res := r.db.WithContext(ctx).Exec(`
		UPDATE conversations
		SET unread_count = jsonb_set(
			COALESCE(unread_count, '{}'::jsonb),
			ARRAY[?],
			'0'::jsonb
		)
		WHERE id = ?`, key, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) UnreadTotal(ctx context.Context, participantID uuid.UUID) (int64, error) {
	key := participantID.String()
	var total sql.NullInt64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM((unread_count->>?)::bigint), 0)
		FROM conversations
		WHERE (participant_a = ? OR participant_b = ?) AND is_active = TRUE`,
		key, participantID, participantID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
