package app

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
	bookingDomain "github.com/felixgeelhaar/coachbook/internal/booking/domain"
	bookingPersistence "github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/persistence"
	rosterDomain "github.com/felixgeelhaar/coachbook/internal/roster/domain"
	rosterPersistence "github.com/felixgeelhaar/coachbook/internal/roster/infrastructure/persistence"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/outbox"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// SessionRepository creates a session repository for the configured driver.
func (f *RepositoryFactory) SessionRepository() (bookingDomain.SessionRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return bookingPersistence.NewPostgresSessionRepository(f.conn), nil
	case database.DriverSQLite:
		return bookingPersistence.NewSQLiteSessionRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// AthleteRepository creates an athlete repository for the configured driver.
func (f *RepositoryFactory) AthleteRepository() (rosterDomain.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return rosterPersistence.NewPostgresAthleteRepository(f.conn), nil
	case database.DriverSQLite:
		return rosterPersistence.NewSQLiteAthleteRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// OutboxRepository creates an outbox repository for the configured driver.
func (f *RepositoryFactory) OutboxRepository() (outbox.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return outbox.NewPostgresRepository(f.conn), nil
	case database.DriverSQLite:
		return outbox.NewSQLiteRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// OfferStore creates a database-backed offer store for the configured
// driver.
func (f *RepositoryFactory) OfferStore(ttl time.Duration) (services.OfferStore, error) {
	switch f.driver {
	case database.DriverPostgres:
		return bookingPersistence.NewPostgresOfferStore(f.conn, ttl), nil
	case database.DriverSQLite:
		return bookingPersistence.NewSQLiteOfferStore(f.conn, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}
