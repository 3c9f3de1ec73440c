package services

import (
	"context"

	"github.com/google/uuid"
)

type participantCtxKey struct{}

// WithParticipant stores the verified caller identity supplied by the
// marketplace identity service.
func WithParticipant(ctx context.Context, participantID uuid.UUID) context.Context {
	return context.WithValue(ctx, participantCtxKey{}, participantID)
}

func ParticipantFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(participantCtxKey{}).(uuid.UUID)
	return id, ok
}
