package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// DefaultOfferTTL is how long offered slots stay valid.
const DefaultOfferTTL = 30 * time.Minute

// OfferStore keeps the latest offered slots per candidate in Redis.
type OfferStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewOfferStore creates a Redis offer store. A non-positive ttl uses
// DefaultOfferTTL.
func NewOfferStore(client redis.UniversalClient, ttl time.Duration) *OfferStore {
	if ttl <= 0 {
		ttl = DefaultOfferTTL
	}
	return &OfferStore{client: client, ttl: ttl}
}

func (s *OfferStore) Save(ctx context.Context, key string, slots []domain.AlternativeSlot) error {
	if slots == nil {
		slots = []domain.AlternativeSlot{}
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encode offer: %w", err)
	}
	return s.client.Set(ctx, offerKey(key), payload, s.ttl).Err()
}

// Load returns nil when no offer is stored under key.
func (s *OfferStore) Load(ctx context.Context, key string) ([]domain.AlternativeSlot, error) {
	payload, err := s.client.Get(ctx, offerKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeOffer(payload)
}

func (s *OfferStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, offerKey(key)).Err()
}

func decodeOffer(payload []byte) ([]domain.AlternativeSlot, error) {
	var slots []domain.AlternativeSlot
	if err := json.Unmarshal(payload, &slots); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	return slots, nil
}

// offerKey hashes the fingerprint to keep keys short and free of
// separators.
func offerKey(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return "coachbook:offer:" + hex.EncodeToString(sum[:16])
}
