package redisstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// IdempotencyRecord is what a replayed request gets back.
type IdempotencyRecord struct {
	Fingerprint string `json:"fingerprint"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyStore remembers responses per caller and Idempotency-Key.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) key(scope, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, key)
}

// Begin claims the key for a new request. When the key is already taken the existing
// record is returned with claimed false.
func (s *IdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string) (*IdempotencyRecord, bool, error) {
	data, err := json.Marshal(IdempotencyRecord{Fingerprint: fingerprint})
	if err != nil {
		return nil, false, err
	}
	// A record that expires or is released between SETNX and GET frees the key, so the
	// claim is tried once more.
	for attempt := 0; attempt < 2; attempt++ {
		claimed, err := s.client.SetNX(ctx, s.key(scope, key), data, s.ttl).Result()
		if err != nil {
			return nil, false, err
		}
		if claimed {
			return nil, true, nil
		}

		raw, err := s.client.Get(ctx, s.key(scope, key)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		var record IdempotencyRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, false, err
		}
		return &record, false, nil
	}
	return nil, false, fmt.Errorf("idempotency key %s keeps vanishing", key)
}

// Complete stores the final response for a claimed key.
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, status int, body []byte) error {
	data, err := json.Marshal(IdempotencyRecord{Fingerprint: fingerprint, Done: true, Status: status, Body: body})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(scope, key), data, s.ttl).Err()
}

// Release drops a claim so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.client.Del(ctx, s.key(scope, key)).Err()
}

// Fingerprint hashes the parts identifying a request.
func Fingerprint(parts ...[]byte) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
