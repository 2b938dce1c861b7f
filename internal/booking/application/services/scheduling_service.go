package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	sharedApplication "github.com/felixgeelhaar/coachbook/internal/shared/application"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
	"github.com/google/uuid"
)

// Config tunes the scheduling service.
type Config struct {
	SlotSearch domain.SlotSearchOptions
	// ForceCapacity caps how many active sessions a forced commit may
	// overlap. Zero means unlimited.
	ForceCapacity int
	// StoreTimeout bounds each call to the session and offer stores.
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		SlotSearch:    domain.DefaultSlotSearchOptions(),
		StoreTimeout:  5 * time.Second,
		NotifyTimeout: 10 * time.Second,
	}
}

// Collaborators are the optional ports of the service. Nil fields fall
// back to process-local no-ops.
type Collaborators struct {
	Locker   ResourceLocker
	Offers   OfferStore
	Notifier Notifier
	Metrics  observability.Metrics
}

// Proposal is the result of proposing a candidate. Exactly one of
// Committed and Conflicts is set.
type Proposal struct {
	Committed *domain.Session
	Conflicts []*domain.Session
	Slots     []domain.AlternativeSlot
}

// HasConflicts reports whether the operator has to pick a strategy.
func (p Proposal) HasConflicts() bool {
	return len(p.Conflicts) > 0
}

// SchedulingService proposes sessions, offers alternatives and commits the
// operator's resolution.
type SchedulingService struct {
	sessions domain.SessionRepository
	uow      sharedApplication.UnitOfWork
	outbox   outbox.Repository
	locker   ResourceLocker
	offers   OfferStore
	notifier Notifier
	metrics  observability.Metrics
	cfg      Config
	logger   *slog.Logger
}

// NewSchedulingService creates a new scheduling service.
func NewSchedulingService(
	sessions domain.SessionRepository,
	uow sharedApplication.UnitOfWork,
	outboxRepo outbox.Repository,
	cfg Config,
	deps Collaborators,
	logger *slog.Logger,
) *SchedulingService {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics{}
	}
	return &SchedulingService{
		sessions: sessions,
		uow:      uow,
		outbox:   outboxRepo,
		locker:   deps.Locker,
		offers:   deps.Offers,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

// ProposeSession commits the candidate when its slot is free. Otherwise it
// returns the conflicting sessions with a nil error and remembers the
// alternative slots offered for them.
func (s *SchedulingService) ProposeSession(ctx context.Context, candidate *domain.Session) (*domain.Session, []*domain.Session, error) {
	proposal, err := s.Propose(ctx, candidate)
	if err != nil {
		return nil, nil, err
	}
	return proposal.Committed, proposal.Conflicts, nil
}

// Propose is ProposeSession returning the offered slots as well.
func (s *SchedulingService) Propose(ctx context.Context, candidate *domain.Session) (proposal Proposal, err error) {
	timer := observability.StartTimer("booking.propose").WithLogger(s.logger).WithMetrics(s.metrics)
	defer func() { timer.Stop(err) }()

	if candidate == nil {
		return Proposal{}, domain.NewValidationError("candidate", "candidate session is required", nil)
	}

	var committed *domain.Session
	var conflicts []*domain.Session
	err = s.withResourceLock(ctx, candidate.ResourceID(), func(txCtx context.Context) error {
		pool, err := s.listDay(txCtx, candidate.ResourceID(), candidate.Date())
		if err != nil {
			return err
		}
		conflicts = domain.DetectConflicts(candidate, pool)
		if len(conflicts) > 0 {
			return nil
		}
		direct, err := domain.Apply(candidate, domain.Outcome{Kind: domain.OutcomeDirect})
		if err != nil {
			return err
		}
		committed, err = s.commit(txCtx, direct, domain.OutcomeDirect)
		return err
	})
	if err != nil {
		return Proposal{}, err
	}

	if committed != nil {
		s.logger.InfoContext(ctx, "session committed",
			"session_id", committed.ID(),
			"resource_id", committed.ResourceID(),
			"date", committed.Date().String(),
			"start", committed.Start().String(),
		)
		s.afterCommit(ctx, committed, domain.OutcomeDirect)
		return Proposal{Committed: committed, Conflicts: conflicts}, nil
	}

	s.metrics.Counter(observability.MetricConflictsDetected, int64(len(conflicts)))
	s.logger.InfoContext(ctx, "session conflicts detected",
		"resource_id", candidate.ResourceID(),
		"date", candidate.Date().String(),
		"conflicts", len(conflicts),
	)

	slots, err := s.OfferSlots(ctx, candidate, conflicts)
	if err != nil {
		// A later reschedule against these slots fails as stale and the
		// operator proposes again.
		s.logger.WarnContext(ctx, "failed to remember offered slots",
			"resource_id", candidate.ResourceID(),
			"error", err,
		)
	}
	return Proposal{Conflicts: conflicts, Slots: slots}, nil
}

// OfferSlots searches alternatives for the candidate and records them as
// the latest offer. The slots are returned even when recording fails.
func (s *SchedulingService) OfferSlots(ctx context.Context, candidate *domain.Session, conflicts []*domain.Session) ([]domain.AlternativeSlot, error) {
	if candidate == nil {
		return nil, domain.NewValidationError("candidate", "candidate session is required", nil)
	}

	opts := s.cfg.SlotSearch
	opts.DayPool = func(day domain.Date) ([]*domain.Session, error) {
		storeCtx, done := s.storeContext(ctx)
		defer done()
		return s.listDay(storeCtx, candidate.ResourceID(), day)
	}
	slots := domain.FindAlternativeSlots(candidate, conflicts, opts)
	s.metrics.Counter(observability.MetricSlotsOffered, int64(len(slots)))

	if s.offers == nil {
		return slots, nil
	}
	storeCtx, done := s.storeContext(ctx)
	defer done()
	if err := s.offers.Save(storeCtx, candidate.Fingerprint(), slots); err != nil {
		return slots, fmt.Errorf("save offered slots: %w", err)
	}
	return slots, nil
}

// Conflicts detects the candidate's current conflicts without taking the
// resource lock. Callers that resolve in a later request use it to rebuild
// the conflict set.
func (s *SchedulingService) Conflicts(ctx context.Context, candidate *domain.Session) ([]*domain.Session, error) {
	if candidate == nil {
		return nil, domain.NewValidationError("candidate", "candidate session is required", nil)
	}
	storeCtx, done := s.storeContext(ctx)
	defer done()
	pool, err := s.listDay(storeCtx, candidate.ResourceID(), candidate.Date())
	if err != nil {
		return nil, err
	}
	return domain.DetectConflicts(candidate, pool), nil
}

// ResolveAndCommit applies the operator's strategy to a conflicted
// candidate and commits the result. Conflicts are detected again under the
// resource lock; a slot that was taken in the meantime yields
// ErrConflictAppeared. When a replace commits but some cancellations fail,
// the committed session is returned together with a *PartialFailureError.
func (s *SchedulingService) ResolveAndCommit(
	ctx context.Context,
	candidate *domain.Session,
	conflicts []*domain.Session,
	strategy domain.Strategy,
	chosenSlot *domain.AlternativeSlot,
) (committed *domain.Session, err error) {
	timer := observability.StartTimer("booking.resolve").
		WithLogger(s.logger).
		WithMetrics(s.metrics).
		WithTags(observability.T("strategy", string(strategy)))
	defer func() { timer.Stop(err) }()

	if candidate == nil {
		return nil, domain.NewValidationError("candidate", "candidate session is required", nil)
	}

	var offered []domain.AlternativeSlot
	if strategy == domain.StrategyReschedule && s.offers != nil {
		offered, err = s.loadOffers(ctx, candidate)
		if err != nil {
			return nil, &domain.StoreError{Op: "load offers", Err: err}
		}
	}

	outcome, err := domain.Resolve(domain.ResolutionRequest{
		Candidate:  candidate,
		Conflicts:  conflicts,
		Strategy:   strategy,
		ChosenSlot: chosenSlot,
		Offered:    offered,
	})
	if err != nil {
		return nil, err
	}
	resolved, err := domain.Apply(candidate, outcome)
	if err != nil {
		return nil, err
	}

	err = s.withResourceLock(ctx, resolved.ResourceID(), func(txCtx context.Context) error {
		pool, err := s.listDay(txCtx, resolved.ResourceID(), resolved.Date())
		if err != nil {
			return err
		}
		if err := s.recheck(outcome, domain.DetectConflicts(resolved, pool)); err != nil {
			return err
		}
		committed, err = s.commit(txCtx, resolved, outcome.Kind)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflictAppeared) {
			s.metrics.Counter(observability.MetricRecheckRejections, 1)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "session committed",
		"session_id", committed.ID(),
		"resource_id", committed.ResourceID(),
		"strategy", string(strategy),
		"resolution", string(outcome.Kind),
	)
	s.forgetOffers(ctx, candidate)
	s.afterCommit(ctx, committed, outcome.Kind)

	if outcome.Kind != domain.OutcomeReplaced {
		return committed, nil
	}

	reason := "replaced by session " + committed.ID().String()
	partial := &domain.PartialFailureError{Committed: committed}
	for _, id := range outcome.CancelIDs {
		_, cerr := s.cancel(ctx, id, reason)
		if cerr == nil || errors.Is(cerr, domain.ErrAlreadyCancelled) {
			continue
		}
		s.logger.WarnContext(ctx, "failed to cancel replaced session",
			"session_id", id,
			"replaced_by", committed.ID(),
			"error", cerr,
		)
		partial.FailedIDs = append(partial.FailedIDs, id)
		partial.Errs = append(partial.Errs, cerr)
	}
	if len(partial.FailedIDs) > 0 {
		return committed, partial
	}
	return committed, nil
}

// CancelSession releases one committed session.
func (s *SchedulingService) CancelSession(ctx context.Context, id uuid.UUID, reason string) (cancelled *domain.Session, err error) {
	timer := observability.StartTimer("booking.cancel").WithLogger(s.logger).WithMetrics(s.metrics)
	defer func() { timer.Stop(err) }()

	return s.cancel(ctx, id, reason)
}

func (s *SchedulingService) cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.Session, error) {
	storeCtx, done := s.storeContext(ctx)
	defer done()

	var cancelled *domain.Session
	err := sharedApplication.WithUnitOfWork(storeCtx, s.uow, func(txCtx context.Context) error {
		session, err := s.sessions.FindByID(txCtx, id)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			return &domain.StoreError{Op: "find", Err: err}
		}
		if session == nil {
			return domain.ErrSessionNotFound
		}
		if err := s.sessions.LockResource(txCtx, session.ResourceID()); err != nil {
			return &domain.StoreError{Op: "lock", Err: err}
		}
		if err := session.Cancel(reason); err != nil {
			return err
		}
		if err := s.sessions.Cancel(txCtx, id); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			return &domain.StoreError{Op: "cancel", Err: err}
		}
		cancelled = session
		return s.saveEvents(txCtx, session)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Counter(observability.MetricSessionsCancelled, 1)
	s.logger.InfoContext(ctx, "session cancelled", "session_id", id, "reason", reason)
	s.notify(ctx, "cancelled", cancelled, func(nctx context.Context) error {
		return s.notifier.SessionCancelled(nctx, cancelled, reason)
	})
	return cancelled, nil
}

// recheck validates the conflicts found under the lock against the
// outcome the operator chose.
func (s *SchedulingService) recheck(outcome domain.Outcome, current []*domain.Session) error {
	switch outcome.Kind {
	case domain.OutcomeRescheduled:
		if len(current) > 0 {
			return fmt.Errorf("%w: %d session(s) now overlap the chosen slot", domain.ErrConflictAppeared, len(current))
		}
	case domain.OutcomeReplaced:
		replaced := make(map[uuid.UUID]bool, len(outcome.CancelIDs))
		for _, id := range outcome.CancelIDs {
			replaced[id] = true
		}
		for _, c := range current {
			if !replaced[c.ID()] {
				return fmt.Errorf("%w: session %s is not being replaced", domain.ErrConflictAppeared, c.ID())
			}
		}
	case domain.OutcomeForced:
		if s.cfg.ForceCapacity > 0 && len(current) >= s.cfg.ForceCapacity {
			return domain.NewValidationError("strategy",
				fmt.Sprintf("%d overlapping session(s) with capacity %d", len(current), s.cfg.ForceCapacity),
				domain.ErrForceCapacityExceeded,
			)
		}
	}
	return nil
}

// withResourceLock runs fn inside a unit of work while holding both the
// process lock and the store's transaction lock for the resource.
func (s *SchedulingService) withResourceLock(ctx context.Context, resourceID uuid.UUID, fn sharedApplication.UnitOfWorkFunc) error {
	storeCtx, done := s.storeContext(ctx)
	defer done()

	if s.locker != nil {
		unlock, err := s.locker.Lock(storeCtx, resourceID)
		if err != nil {
			return &domain.StoreError{Op: "lock", Err: err}
		}
		defer unlock()
	}

	return sharedApplication.WithUnitOfWork(storeCtx, s.uow, func(txCtx context.Context) error {
		if err := s.sessions.LockResource(txCtx, resourceID); err != nil {
			return &domain.StoreError{Op: "lock", Err: err}
		}
		return fn(txCtx)
	})
}

func (s *SchedulingService) listDay(ctx context.Context, resourceID uuid.UUID, day domain.Date) ([]*domain.Session, error) {
	pool, err := s.sessions.ListSessions(ctx, resourceID, domain.SingleDay(day))
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	return pool, nil
}

func (s *SchedulingService) commit(ctx context.Context, session *domain.Session, path domain.OutcomeKind) (*domain.Session, error) {
	saved, err := s.sessions.Commit(ctx, session)
	if err != nil {
		return nil, &domain.StoreError{Op: "commit", Err: err}
	}
	if err := saved.MarkCommitted(path); err != nil {
		return nil, err
	}
	if err := s.saveEvents(ctx, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *SchedulingService) saveEvents(ctx context.Context, session *domain.Session) error {
	events := session.PullDomainEvents()
	if s.outbox == nil || len(events) == 0 {
		return nil
	}

	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(
		observability.ActorIDFromContext(ctx),
		observability.CorrelationIDFromContext(ctx),
	))

	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	if err := s.outbox.SaveBatch(ctx, msgs); err != nil {
		return &domain.StoreError{Op: "save events", Err: err}
	}
	return nil
}

func (s *SchedulingService) afterCommit(ctx context.Context, session *domain.Session, path domain.OutcomeKind) {
	s.metrics.Counter(observability.MetricSessionsCommitted, 1, observability.T("resolution", string(path)))
	s.notify(ctx, "committed", session, func(nctx context.Context) error {
		return s.notifier.SessionCommitted(nctx, session, path)
	})
}

func (s *SchedulingService) forgetOffers(ctx context.Context, candidate *domain.Session) {
	if s.offers == nil {
		return
	}
	storeCtx, done := s.storeContext(ctx)
	defer done()
	if err := s.offers.Delete(storeCtx, candidate.Fingerprint()); err != nil {
		s.logger.DebugContext(ctx, "failed to delete offered slots", "error", err)
	}
}

func (s *SchedulingService) loadOffers(ctx context.Context, candidate *domain.Session) ([]domain.AlternativeSlot, error) {
	storeCtx, done := s.storeContext(ctx)
	defer done()
	return s.offers.Load(storeCtx, candidate.Fingerprint())
}

// notify never fails the operation that triggered it.
func (s *SchedulingService) notify(ctx context.Context, kind string, session *domain.Session, send func(context.Context) error) {
	nctx := context.WithoutCancel(ctx)
	if s.cfg.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(nctx, s.cfg.NotifyTimeout)
		defer cancel()
	}
	if err := send(nctx); err != nil {
		s.metrics.Counter(observability.MetricNotifyFailures, 1, observability.T("kind", kind))
		s.logger.WarnContext(ctx, "notification failed",
			"kind", kind,
			"session_id", session.ID(),
			"error", err,
		)
	}
}

func (s *SchedulingService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}
