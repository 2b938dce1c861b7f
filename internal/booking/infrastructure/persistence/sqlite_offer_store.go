package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
)

// DefaultOfferTTL is how long offered slots stay valid.
const DefaultOfferTTL = 30 * time.Minute

// SQLiteOfferStore keeps offered slots in the slot_offers table so a
// resolve issued by a later process still sees them.
type SQLiteOfferStore struct {
	conn database.Connection
	ttl  time.Duration
	now  func() time.Time
}

// NewSQLiteOfferStore creates an offer store. A non-positive ttl uses
// DefaultOfferTTL.
func NewSQLiteOfferStore(conn database.Connection, ttl time.Duration) *SQLiteOfferStore {
	if ttl <= 0 {
		ttl = DefaultOfferTTL
	}
	return &SQLiteOfferStore{conn: conn, ttl: ttl, now: time.Now}
}

func (s *SQLiteOfferStore) Save(ctx context.Context, key string, slots []domain.AlternativeSlot) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	exec := database.ExecutorFromContext(ctx, s.conn)
	if _, err := exec.Exec(ctx, `DELETE FROM slot_offers WHERE expires_at <= ?`, now.Format(sqliteTimeLayout)); err != nil {
		return err
	}
	_, err = exec.Exec(ctx, `
		INSERT INTO slot_offers (offer_key, slots, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (offer_key) DO UPDATE SET
			slots = excluded.slots,
			expires_at = excluded.expires_at`,
		key, string(payload), now.Add(s.ttl).Format(sqliteTimeLayout),
	)
	return err
}

// Load returns nil when nothing unexpired is stored under key.
func (s *SQLiteOfferStore) Load(ctx context.Context, key string) ([]domain.AlternativeSlot, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)
	var payload string
	err := exec.QueryRow(ctx, `
		SELECT slots FROM slot_offers
		WHERE offer_key = ? AND expires_at > ?`,
		key, s.now().UTC().Format(sqliteTimeLayout),
	).Scan(&payload)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var slots []domain.AlternativeSlot
	if err := json.Unmarshal([]byte(payload), &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *SQLiteOfferStore) Delete(ctx context.Context, key string) error {
	exec := database.ExecutorFromContext(ctx, s.conn)
	_, err := exec.Exec(ctx, `DELETE FROM slot_offers WHERE offer_key = ?`, key)
	return err
}
