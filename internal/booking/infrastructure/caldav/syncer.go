package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// PropXCoachbook marks events written by this syncer.
const PropXCoachbook = "X-COACHBOOK"

// ErrCalendarUnavailable is returned while the breaker is open.
var ErrCalendarUnavailable = errors.New("calendar unavailable: circuit open")

// Syncer mirrors sessions into a CalDAV calendar (Nextcloud, Fastmail,
// iCloud and the like).
type Syncer struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	location     *time.Location
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[any]
	logger       *slog.Logger

	mu       sync.Mutex
	resolved string
}

// NewSyncer creates a CalDAV syncer authenticating with basic auth.
func NewSyncer(baseURL, username, password string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Syncer{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		location:   time.UTC,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "caldav",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// WithCalendarPath pins the calendar collection instead of discovering the
// principal's first calendar.
func (s *Syncer) WithCalendarPath(path string) *Syncer {
	s.calendarPath = path
	return s
}

// WithLocation sets the zone session wall-clock times are interpreted in.
func (s *Syncer) WithLocation(loc *time.Location) *Syncer {
	if loc != nil {
		s.location = loc
	}
	return s
}

// UpsertSession writes the session as an event. It reports whether an
// existing event was replaced.
func (s *Syncer) UpsertSession(ctx context.Context, session domain.SessionSnapshot) (bool, error) {
	var updated bool
	err := s.guard(func() error {
		client, calPath, err := s.open(ctx)
		if err != nil {
			return err
		}
		eventPath := eventPath(calPath, session.SessionID)

		_, getErr := client.GetCalendarObject(ctx, eventPath)
		updated = getErr == nil

		if _, err := client.PutCalendarObject(ctx, eventPath, s.toICalendar(session)); err != nil {
			return fmt.Errorf("put %s: %w", eventPath, err)
		}
		return nil
	})
	return updated, err
}

// DeleteSession removes the session's event if present.
func (s *Syncer) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.guard(func() error {
		client, calPath, err := s.open(ctx)
		if err != nil {
			return err
		}
		eventPath := eventPath(calPath, sessionID)
		if err := client.RemoveAll(ctx, eventPath); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete %s: %w", eventPath, err)
		}
		return nil
	})
}

// CircuitOpen reports whether calendar calls are currently short-circuited.
func (s *Syncer) CircuitOpen() bool {
	return s.breaker.State() == gobreaker.StateOpen
}

func (s *Syncer) guard(fn func() error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCalendarUnavailable
	}
	return err
}

func (s *Syncer) open(ctx context.Context) (*caldav.Client, string, error) {
	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(s.httpClient, s.username, s.password), s.baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("create caldav client: %w", err)
	}
	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return nil, "", fmt.Errorf("find calendar: %w", err)
	}
	return client, calPath, nil
}

func (s *Syncer) findCalendarPath(ctx context.Context, client *caldav.Client) (string, error) {
	if s.calendarPath != "" {
		return s.calendarPath, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved != "" {
		return s.resolved, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", errors.New("no calendars found")
	}

	s.resolved = cals[0].Path
	s.logger.Info("using caldav calendar", "path", s.resolved, "name", cals[0].Name)
	return s.resolved, nil
}

func (s *Syncer) toICalendar(session domain.SessionSnapshot) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//Coachbook//Session Sync//EN")

	start := s.wallClock(session.Date, session.Start)
	end := s.wallClock(session.Date, session.End)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, session.SessionID.String())
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)

	summary := session.Title
	if summary == "" {
		summary = "Coaching session"
	}
	event.Props.SetText(ical.PropSummary, summary)

	description := fmt.Sprintf("Athlete: %s\nStatus: %s", session.SubjectID, session.Status)
	if session.AllowOverlap {
		description += "\nOverlap: forced"
	}
	event.Props.SetText(ical.PropDescription, description)

	marker := ical.NewProp(PropXCoachbook)
	marker.Value = "1"
	event.Props[PropXCoachbook] = []ical.Prop{*marker}

	cal.Children = append(cal.Children, event.Component)
	return cal
}

func (s *Syncer) wallClock(day domain.Date, clock domain.Clock) time.Time {
	return time.Date(day.Year, day.Month, day.Day, clock.Hour(), clock.Minute(), 0, 0, s.location)
}

func eventPath(calPath string, sessionID uuid.UUID) string {
	if !strings.HasSuffix(calPath, "/") {
		calPath += "/"
	}
	return calPath + sessionID.String() + ".ics"
}

// isNotFound matches the status text the webdav client puts in its errors.
func isNotFound(err error) bool {
	return strings.Contains(err.Error(), strconv.Itoa(http.StatusNotFound))
}
