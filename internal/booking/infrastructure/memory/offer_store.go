package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// DefaultOfferTTL is how long offered slots stay valid.
const DefaultOfferTTL = 30 * time.Minute

// OfferStore keeps offered slots in process memory with a TTL.
type OfferStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	offers map[string]offer
}

type offer struct {
	slots     []domain.AlternativeSlot
	expiresAt time.Time
}

// NewOfferStore creates a store whose entries expire after ttl. A
// non-positive ttl uses DefaultOfferTTL.
func NewOfferStore(ttl time.Duration) *OfferStore {
	if ttl <= 0 {
		ttl = DefaultOfferTTL
	}
	return &OfferStore{
		ttl:    ttl,
		now:    time.Now,
		offers: make(map[string]offer),
	}
}

// Save replaces the offer stored under key.
func (s *OfferStore) Save(_ context.Context, key string, slots []domain.AlternativeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.offers[key] = offer{
		slots:     append([]domain.AlternativeSlot(nil), slots...),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *OfferStore) Load(_ context.Context, key string) ([]domain.AlternativeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[key]
	if !ok || !s.now().Before(o.expiresAt) {
		delete(s.offers, key)
		return nil, nil
	}
	return append([]domain.AlternativeSlot(nil), o.slots...), nil
}

func (s *OfferStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.offers, key)
	return nil
}

// sweep drops expired entries; callers hold mu.
func (s *OfferStore) sweep() {
	now := s.now()
	for key, o := range s.offers {
		if !now.Before(o.expiresAt) {
			delete(s.offers, key)
		}
	}
}
