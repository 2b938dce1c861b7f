package caldav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

func testSnapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		SessionID:  uuid.MustParse("6f1c1f0e-8d8a-4c55-9a37-0c6a3c1f7a01"),
		ResourceID: uuid.New(),
		SubjectID:  uuid.MustParse("0a9d3a8c-1b9f-4f8e-8a47-5d2b6f0d9e11"),
		Title:      "Threshold intervals",
		Date:       domain.NewDate(2025, time.March, 10),
		Start:      domain.NewClock(9, 0),
		End:        domain.NewClock(10, 30),
		Status:     domain.StatusScheduled,
	}
}

func eventOf(t *testing.T, cal *ical.Calendar) *ical.Component {
	t.Helper()
	require.Len(t, cal.Children, 1)
	require.Equal(t, ical.CompEvent, cal.Children[0].Name)
	return cal.Children[0]
}

func TestNewSyncer(t *testing.T) {
	s := NewSyncer("https://dav.example.com", "coach", "secret", nil)

	assert.Equal(t, "https://dav.example.com", s.baseURL)
	assert.Equal(t, "coach", s.username)
	assert.Equal(t, time.UTC, s.location)
	assert.NotNil(t, s.breaker)
	assert.NotNil(t, s.logger)
}

func TestToICalendar(t *testing.T) {
	s := NewSyncer("https://dav.example.com", "coach", "secret", nil)
	snap := testSnapshot()

	event := eventOf(t, s.toICalendar(snap))

	assert.Equal(t, snap.SessionID.String(), event.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "Threshold intervals", event.Props.Get(ical.PropSummary).Value)
	assert.Equal(t, "20250310T090000Z", event.Props.Get(ical.PropDateTimeStart).Value)
	assert.Equal(t, "20250310T103000Z", event.Props.Get(ical.PropDateTimeEnd).Value)
	assert.Equal(t, "1", event.Props.Get(PropXCoachbook).Value)

	description := event.Props.Get(ical.PropDescription).Value
	assert.Contains(t, description, snap.SubjectID.String())
	assert.Contains(t, description, "scheduled")
	assert.NotContains(t, description, "forced")
}

func TestToICalendar_DefaultsAndForcedOverlap(t *testing.T) {
	s := NewSyncer("https://dav.example.com", "coach", "secret", nil)
	snap := testSnapshot()
	snap.Title = ""
	snap.AllowOverlap = true

	event := eventOf(t, s.toICalendar(snap))

	assert.Equal(t, "Coaching session", event.Props.Get(ical.PropSummary).Value)
	assert.Contains(t, event.Props.Get(ical.PropDescription).Value, "Overlap: forced")
}

func TestToICalendar_Location(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	s := NewSyncer("https://dav.example.com", "coach", "secret", nil).WithLocation(berlin)

	start := eventOf(t, s.toICalendar(testSnapshot())).Props.Get(ical.PropDateTimeStart)

	assert.Equal(t, "20250310T090000", start.Value)
	assert.Equal(t, "Europe/Berlin", start.Params.Get(ical.ParamTimezoneID))
}

func TestWithLocation_IgnoresNil(t *testing.T) {
	s := NewSyncer("https://dav.example.com", "coach", "secret", nil).WithLocation(nil)
	assert.Equal(t, time.UTC, s.location)
}

func TestEventPath(t *testing.T) {
	id := uuid.MustParse("6f1c1f0e-8d8a-4c55-9a37-0c6a3c1f7a01")

	assert.Equal(t, "/cal/coach/6f1c1f0e-8d8a-4c55-9a37-0c6a3c1f7a01.ics", eventPath("/cal/coach", id))
	assert.Equal(t, "/cal/coach/6f1c1f0e-8d8a-4c55-9a37-0c6a3c1f7a01.ics", eventPath("/cal/coach/", id))
}

// davServer records requests and answers like a minimal CalDAV collection.
type davServer struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	putCode  int
}

func newDAVServer(t *testing.T) (*davServer, *httptest.Server) {
	t.Helper()
	d := &davServer{bodies: map[string]string{}, putCode: http.StatusCreated}
	srv := httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(srv.Close)
	return d, srv
}

func (d *davServer) serve(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, r.Method+" "+r.URL.Path)

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		if d.putCode >= 300 {
			w.WriteHeader(d.putCode)
			return
		}
		d.bodies[r.URL.Path] = string(body)
		w.WriteHeader(d.putCode)
	case http.MethodDelete:
		if _, ok := d.bodies[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(d.bodies, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (d *davServer) methods() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

func TestSyncer_UpsertAndDelete(t *testing.T) {
	dav, srv := newDAVServer(t)
	s := NewSyncer(srv.URL, "coach", "secret", nil).WithCalendarPath("/cal/coach")
	snap := testSnapshot()
	path := "/cal/coach/" + snap.SessionID.String() + ".ics"

	updated, err := s.UpsertSession(context.Background(), snap)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Contains(t, dav.methods(), "PUT "+path)
	assert.True(t, strings.Contains(dav.bodies[path], "X-COACHBOOK:1"))

	require.NoError(t, s.DeleteSession(context.Background(), snap.SessionID))
	assert.Contains(t, dav.methods(), "DELETE "+path)
	assert.Empty(t, dav.bodies)
}

func TestSyncer_DeleteMissingIsIgnored(t *testing.T) {
	_, srv := newDAVServer(t)
	s := NewSyncer(srv.URL, "coach", "secret", nil).WithCalendarPath("/cal/coach")

	assert.NoError(t, s.DeleteSession(context.Background(), uuid.New()))
}

func TestSyncer_BreakerOpensAfterFailures(t *testing.T) {
	dav, srv := newDAVServer(t)
	dav.putCode = http.StatusInternalServerError
	s := NewSyncer(srv.URL, "coach", "secret", nil).WithCalendarPath("/cal/coach")

	for i := 0; i < 3; i++ {
		_, err := s.UpsertSession(context.Background(), testSnapshot())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCalendarUnavailable)
	}

	_, err := s.UpsertSession(context.Background(), testSnapshot())
	assert.ErrorIs(t, err, ErrCalendarUnavailable)
}

func TestSyncer_CircuitStartsClosed(t *testing.T) {
	s := NewSyncer("https://dav.example.com", "coach", "secret", nil)
	assert.False(t, s.CircuitOpen())
}
