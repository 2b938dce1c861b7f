package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/subscribers"
	bookingDomain "github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/caldav"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/memory"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/notify"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/redisstore"
	rosterServices "github.com/felixgeelhaar/coachbook/internal/roster/application/services"
	rosterDomain "github.com/felixgeelhaar/coachbook/internal/roster/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database/postgres"
	_ "github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/coachbook/pkg/config"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// Infrastructure
	DBConn      database.Connection
	DBDriver    database.Driver
	RedisClient *redis.Client

	// Repositories
	SessionRepo bookingDomain.SessionRepository
	AthleteRepo rosterDomain.Repository
	OutboxRepo  outbox.Repository
	UnitOfWork  *database.UnitOfWork

	// Event delivery. EventBus is set when events are consumed in process.
	EventPublisher  eventbus.Publisher
	EventBus        *eventbus.InProcessEventBus
	OutboxProcessor *outbox.Processor

	// Integrations
	Notifier     services.Notifier
	CalendarSync *caldav.Syncer

	// Services
	Scheduler *services.SchedulingService
	Directory *rosterServices.Directory

	// Session command handlers
	ProposeSessionHandler  *commands.ProposeSessionHandler
	ResolveConflictHandler *commands.ResolveConflictHandler
	CancelSessionHandler   *commands.CancelSessionHandler

	// Session query handlers
	ListSessionsHandler *queries.ListSessionsHandler
	FindSlotsHandler    *queries.FindSlotsHandler
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	if err := c.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := c.initRepositories(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initCalendarSync(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initEventDelivery(); err != nil {
		c.Close()
		return nil, err
	}

	c.Directory = rosterServices.NewDirectory(c.AthleteRepo, logger)
	if err := c.initNotifier(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initScheduler(); err != nil {
		c.Close()
		return nil, err
	}

	c.ProposeSessionHandler = commands.NewProposeSessionHandler(c.Scheduler)
	c.ResolveConflictHandler = commands.NewResolveConflictHandler(c.Scheduler)
	c.CancelSessionHandler = commands.NewCancelSessionHandler(c.Scheduler)
	c.ListSessionsHandler = queries.NewListSessionsHandler(c.SessionRepo)
	c.FindSlotsHandler = queries.NewFindSlotsHandler(c.SessionRepo, c.slotSearchOptions())

	return c, nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	cfg := c.Config
	dbCfg := database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		SQLitePath: cfg.SQLitePath,
	}
	if dbCfg.Driver == database.DriverPostgres {
		dbCfg.URL = cfg.DatabaseURL
	} else if dbCfg.SQLitePath == "" {
		if cfg.DatabaseURL != "" {
			dbCfg.SQLitePath = database.SQLitePathFromURL(cfg.DatabaseURL)
		} else {
			dbCfg.SQLitePath = database.DefaultSQLitePath()
		}
	}

	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.Logger.Info("connected to database", "driver", c.DBDriver)

	// SQLite is migrated on open; PostgreSQL goes through `coachbook migrate`.
	if c.DBDriver == database.DriverSQLite {
		if err := migrations.Run(ctx, conn, "", c.Logger); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	c.Health.Register("database", observability.DatabaseHealthChecker(conn.Ping))
	return nil
}

func (c *Container) initRepositories() error {
	factory := NewRepositoryFactory(c.DBConn)

	sessions, err := factory.SessionRepository()
	if err != nil {
		return err
	}
	athletes, err := factory.AthleteRepository()
	if err != nil {
		return err
	}
	outboxRepo, err := factory.OutboxRepository()
	if err != nil {
		return err
	}

	c.SessionRepo = sessions
	c.AthleteRepo = athletes
	c.OutboxRepo = outboxRepo
	c.UnitOfWork = database.NewUnitOfWork(c.DBConn)
	return nil
}

// initRedis connects when REDIS_URL is set. Development tolerates an
// unreachable server and falls back to process-local locking.
func (c *Container) initRedis(ctx context.Context) error {
	cfg := c.Config
	if cfg.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, using process-local locks", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, using process-local locks", "error", err)
		return nil
	}

	c.RedisClient = client
	c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}))
	c.Logger.Info("connected to Redis")
	return nil
}

func (c *Container) initCalendarSync() error {
	cfg := c.Config
	if !cfg.CalDAVEnabled() {
		return nil
	}

	loc, err := time.LoadLocation(cfg.CalDAVTimezone)
	if err != nil {
		return fmt.Errorf("invalid CALDAV_TIMEZONE %q: %w", cfg.CalDAVTimezone, err)
	}

	syncer := caldav.NewSyncer(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, c.Logger).
		WithLocation(loc)
	if cfg.CalDAVCalendar != "" {
		syncer = syncer.WithCalendarPath(cfg.CalDAVCalendar)
	}
	c.CalendarSync = syncer
	c.Health.Register("calendar", func(context.Context) observability.HealthCheckResult {
		if syncer.CircuitOpen() {
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusDegraded,
				Message: "calendar circuit open",
			}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
	})
	return nil
}

// initEventDelivery publishes to RabbitMQ when configured. Otherwise events
// are delivered to in-process subscribers.
func (c *Container) initEventDelivery() error {
	cfg := c.Config

	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
		if err != nil {
			if !cfg.IsDevelopment() {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			c.Logger.Warn("RabbitMQ not available, delivering events in process", "error", err)
		} else {
			c.EventPublisher = publisher
			c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(publisher.Ping))
		}
	}

	if c.EventPublisher == nil {
		bus := eventbus.NewInProcessEventBus(c.Logger)
		if c.CalendarSync != nil {
			bus.RegisterConsumer(subscribers.NewCalendarSyncSubscriber(c.CalendarSync, c.Logger))
		}
		c.EventBus = bus
		c.EventPublisher = bus
	}

	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, c.processorConfig(), c.Logger)
	c.Health.Register("outbox", outbox.HealthChecker(c.OutboxRepo, cfg.OutboxMaxLag))
	return nil
}

func (c *Container) processorConfig() outbox.ProcessorConfig {
	pc := outbox.DefaultProcessorConfig()
	if c.Config.OutboxPollInterval > 0 {
		pc.PollInterval = c.Config.OutboxPollInterval
	}
	if c.Config.OutboxBatchSize > 0 {
		pc.BatchSize = c.Config.OutboxBatchSize
	}
	if c.Config.OutboxMaxRetries > 0 {
		pc.MaxRetries = c.Config.OutboxMaxRetries
	}
	return pc
}

func (c *Container) initNotifier() error {
	cfg := c.Config
	notifiers := []services.Notifier{notify.NewLogNotifier(c.Logger)}

	if cfg.TelegramEnabled() {
		b, err := notify.NewTelegramBot(cfg.TelegramBotToken, cfg.TelegramServerURL)
		if err != nil {
			return err
		}
		breakerCfg := notify.DefaultBreakerConfig("telegram")
		if cfg.NotifyBreakerThreshold > 0 {
			breakerCfg.FailureThreshold = uint32(cfg.NotifyBreakerThreshold)
		}
		if cfg.NotifyBreakerTimeout > 0 {
			breakerCfg.Timeout = cfg.NotifyBreakerTimeout
		}
		telegram := notify.NewTelegramNotifier(b, c.Directory, c.Logger)
		notifiers = append(notifiers, notify.NewBreakerNotifier(telegram, breakerCfg, c.Logger))
	}

	c.Notifier = notify.NewMultiNotifier(notifiers...)
	return nil
}

func (c *Container) initScheduler() error {
	cfg := c.Config

	deps := services.Collaborators{
		Notifier: c.Notifier,
		Metrics:  c.Metrics,
	}
	if c.RedisClient != nil {
		deps.Locker = redisstore.NewResourceLocker(c.RedisClient, cfg.LockTTL, c.Logger)
		deps.Offers = redisstore.NewOfferStore(c.RedisClient, cfg.OfferTTL)
	} else {
		offers, err := NewRepositoryFactory(c.DBConn).OfferStore(cfg.OfferTTL)
		if err != nil {
			return err
		}
		deps.Locker = memory.NewResourceLocker()
		deps.Offers = offers
	}

	svcCfg := services.DefaultConfig()
	svcCfg.SlotSearch = c.slotSearchOptions()
	svcCfg.ForceCapacity = cfg.ForceCapacity
	if cfg.StoreTimeout > 0 {
		svcCfg.StoreTimeout = cfg.StoreTimeout
	}
	if cfg.NotifyTimeout > 0 {
		svcCfg.NotifyTimeout = cfg.NotifyTimeout
	}

	c.Scheduler = services.NewSchedulingService(c.SessionRepo, c.UnitOfWork, c.OutboxRepo, svcCfg, deps, c.Logger)
	return nil
}

func (c *Container) slotSearchOptions() bookingDomain.SlotSearchOptions {
	opts := bookingDomain.DefaultSlotSearchOptions()
	if len(c.Config.SlotCandidateTimes) > 0 {
		opts.CandidateTimes = make([]bookingDomain.Clock, 0, len(c.Config.SlotCandidateTimes))
		for _, m := range c.Config.SlotCandidateTimes {
			opts.CandidateTimes = append(opts.CandidateTimes, bookingDomain.Clock(m))
		}
	}
	if c.Config.SlotLookaheadDays > 0 {
		opts.LookaheadDays = c.Config.SlotLookaheadDays
	}
	if c.Config.SlotMaxResults > 0 {
		opts.MaxResults = c.Config.SlotMaxResults
	}
	return opts
}

// FlushOutbox delivers pending events once. The CLI calls it after each
// command so in-process subscribers run before the process exits.
func (c *Container) FlushOutbox(ctx context.Context) {
	if c.OutboxProcessor == nil || c.EventBus == nil {
		return
	}
	if err := c.OutboxProcessor.ProcessOnce(ctx); err != nil {
		c.Logger.Warn("failed to flush outbox", "error", err)
	}
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil && c.OutboxProcessor.IsRunning() {
		c.OutboxProcessor.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}
