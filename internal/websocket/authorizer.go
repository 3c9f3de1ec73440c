package websocket

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// MembershipChecker answers whether a participant belongs to a conversation.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, caller, conversationID uuid.UUID) (bool, error)
}

// RoomAuthorizer gates room joins. Personal rooms are only joinable by their
// owner; conversation rooms require membership.
type RoomAuthorizer struct {
	membership MembershipChecker
}

func NewRoomAuthorizer(membership MembershipChecker) *RoomAuthorizer {
	return &RoomAuthorizer{membership: membership}
}

func (a *RoomAuthorizer) CanJoin(ctx context.Context, participantID uuid.UUID, room string) (bool, error) {
	if strings.HasPrefix(room, roomPrefixParticipant) {
		return strings.TrimPrefix(room, roomPrefixParticipant) == participantID.String(), nil
	}

	if strings.HasPrefix(room, roomPrefixConversation) {
		conversationID, err := uuid.Parse(strings.TrimPrefix(room, roomPrefixConversation))
		if err != nil {
			return false, nil
		}
		return a.membership.IsParticipant(ctx, participantID, conversationID)
	}

	return false, nil
}
