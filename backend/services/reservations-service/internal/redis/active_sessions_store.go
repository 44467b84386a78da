package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/events"
	"greencharge/backend/services/reservations-service/internal/models"
)

// ActiveSession is a charging session in progress, cached for owner dashboards.
type ActiveSession struct {
	RequestID   uuid.UUID  `json:"request_id"`
	BookingID   *uuid.UUID `json:"booking_id,omitempty"`
	ResourceID  uuid.UUID  `json:"resource_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	UserID      uuid.UUID  `json:"user_id"`
	StartedAt   time.Time  `json:"started_at"`
	ExpectedEnd time.Time  `json:"expected_end"`
}

// Store manages the active session cache. The committed request rows stay the source of
// truth; entries expire after ttl in case an end event is lost.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, ttl: ttl, logger: logger}
}

func (s *Store) key(requestID uuid.UUID) string {
	return fmt.Sprintf("sessions:active:%s", requestID)
}

func (s *Store) ownerKey(ownerID uuid.UUID) string {
	return fmt.Sprintf("sessions:owner:%s", ownerID)
}

// Save caches session.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(session.RequestID), data, s.ttl)
		pipe.SAdd(ctx, s.ownerKey(session.OwnerID), session.RequestID.String())
		pipe.Expire(ctx, s.ownerKey(session.OwnerID), s.ttl)
		return nil
	})
	return err
}

// Get returns cached session.
func (s *Store) Get(ctx context.Context, requestID uuid.UUID) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(requestID)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes cached session.
func (s *Store) Delete(ctx context.Context, ownerID, requestID uuid.UUID) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(requestID))
		pipe.SRem(ctx, s.ownerKey(ownerID), requestID.String())
		return nil
	})
	return err
}

// ListByOwner returns the owner's running sessions. Expired entries are pruned.
func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ActiveSession, error) {
	members, err := s.client.SMembers(ctx, s.ownerKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []ActiveSession{}, nil
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, "sessions:active:"+m)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]ActiveSession, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, members[i])
			continue
		}
		var session ActiveSession
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if len(stale) > 0 {
		s.client.SRem(ctx, s.ownerKey(ownerID), stale...)
	}
	return sessions, nil
}

// Notify keeps the cache in step with committed session transitions.
func (s *Store) Notify(ctx context.Context, ev events.Event) {
	if ev.RequestID == nil {
		return
	}
	var err error
	switch ev.Type {
	case events.SessionStarted:
		session := ActiveSession{
			RequestID:   *ev.RequestID,
			BookingID:   ev.BookingID,
			ResourceID:  ev.ResourceID,
			OwnerID:     ev.OwnerID,
			UserID:      ev.UserID,
			StartedAt:   ev.OccurredAt,
			ExpectedEnd: models.EndTimeFor(ev.OccurredAt, ev.DurationHours),
		}
		err = s.Save(ctx, session)
	case events.SessionEnded, events.SessionCancelled:
		err = s.Delete(ctx, ev.OwnerID, *ev.RequestID)
	default:
		return
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("failed to sync active session cache",
			zap.String("type", string(ev.Type)),
			zap.String("request_id", ev.RequestID.String()),
			zap.Error(err),
		)
	}
}
