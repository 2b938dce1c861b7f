package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
)

// PostgresOfferStore keeps offered slots in PostgreSQL.
type PostgresOfferStore struct {
	conn database.Connection
	ttl  time.Duration
}

// NewPostgresOfferStore creates an offer store. A non-positive ttl uses
// DefaultOfferTTL.
func NewPostgresOfferStore(conn database.Connection, ttl time.Duration) *PostgresOfferStore {
	if ttl <= 0 {
		ttl = DefaultOfferTTL
	}
	return &PostgresOfferStore{conn: conn, ttl: ttl}
}

func (s *PostgresOfferStore) Save(ctx context.Context, key string, slots []domain.AlternativeSlot) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}

	exec := database.ExecutorFromContext(ctx, s.conn)
	if _, err := exec.Exec(ctx, `DELETE FROM slot_offers WHERE expires_at <= NOW()`); err != nil {
		return err
	}
	_, err = exec.Exec(ctx, `
		INSERT INTO slot_offers (offer_key, slots, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		ON CONFLICT (offer_key) DO UPDATE SET
			slots = EXCLUDED.slots,
			expires_at = EXCLUDED.expires_at`,
		key, string(payload), s.ttl.Seconds(),
	)
	return err
}

// Load returns nil when nothing unexpired is stored under key.
func (s *PostgresOfferStore) Load(ctx context.Context, key string) ([]domain.AlternativeSlot, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)
	var payload []byte
	err := exec.QueryRow(ctx, `
		SELECT slots FROM slot_offers
		WHERE offer_key = $1 AND expires_at > NOW()`,
		key,
	).Scan(&payload)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var slots []domain.AlternativeSlot
	if err := json.Unmarshal(payload, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *PostgresOfferStore) Delete(ctx context.Context, key string) error {
	exec := database.ExecutorFromContext(ctx, s.conn)
	_, err := exec.Exec(ctx, `DELETE FROM slot_offers WHERE offer_key = $1`, key)
	return err
}
