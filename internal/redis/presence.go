package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PresenceStatus is what other instances read back for a participant.
type PresenceStatus struct {
	ParticipantID string    `json:"participant_id"`
	IsOnline      bool      `json:"is_online"`
	LastSeen      time.Time `json:"last_seen"`
}

// PresenceStore mirrors hub connection state into Redis so any instance can
// answer online checks. Entries expire on their own if an instance dies
// without cleaning up.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

const (
	presenceKeyPrefix = "presence:"
	presenceOnlineSet = "presence:online"
)

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{client: client, ttl: ttl}
}

func (p *PresenceStore) SetOnline(ctx context.Context, participantID string) error {
	status := PresenceStatus{
		ParticipantID: participantID,
		IsOnline:      true,
		LastSeen:      time.Now(),
	}
	data, _ := json.Marshal(status)

	pipe := p.client.Pipeline()
	pipe.Set(ctx, presenceKeyPrefix+participantID, data, p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, participantID)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) SetOffline(ctx context.Context, participantID string) error {
	status := PresenceStatus{
		ParticipantID: participantID,
		IsOnline:      false,
		LastSeen:      time.Now(),
	}
	data, _ := json.Marshal(status)

	pipe := p.client.Pipeline()
	// Offline entries stay longer so last-seen queries keep working.
	pipe.Set(ctx, presenceKeyPrefix+participantID, data, 24*time.Hour)
	pipe.SRem(ctx, presenceOnlineSet, participantID)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) IsOnline(ctx context.Context, participantID string) (bool, error) {
	return p.client.SIsMember(ctx, presenceOnlineSet, participantID).Result()
}

func (p *PresenceStore) GetPresence(ctx context.Context, participantID string) (*PresenceStatus, error) {
	data, err := p.client.Get(ctx, presenceKeyPrefix+participantID).Result()
	if err == goredis.Nil {
		return &PresenceStatus{ParticipantID: participantID}, nil
	}
	if err != nil {
		return nil, err
	}

	var status PresenceStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Heartbeat refreshes the TTL on a live connection's entry.
func (p *PresenceStore) Heartbeat(ctx context.Context, participantID string) error {
	return p.client.Expire(ctx, presenceKeyPrefix+participantID, p.ttl).Err()
}
