package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	coachID   = uuid.MustParse("7d0c2a52-3f3e-4a43-9c1b-0d6c1e0b5a01")
	athleteID = uuid.MustParse("0b7f4f7e-5d3c-4f8a-8f1e-6a2b9c4d3e02")
	march10   = NewDate(2025, time.March, 10)
)

func candidate(t *testing.T, start, end string) *Session {
	t.Helper()
	return candidateOn(t, march10, start, end)
}

func candidateOn(t *testing.T, day Date, start, end string) *Session {
	t.Helper()
	s, err := NewSession(coachID, athleteID, "Strength block", day, MustParseClock(start), MustParseClock(end))
	require.NoError(t, err)
	return s
}

func existing(t *testing.T, start, end string) *Session {
	t.Helper()
	return existingOn(t, march10, start, end, StatusScheduled)
}

func existingOn(t *testing.T, day Date, start, end string, status Status) *Session {
	t.Helper()
	now := time.Now().UTC()
	return RehydrateSession(uuid.New(), coachID, uuid.New(), "Booked", day,
		MustParseClock(start), MustParseClock(end), status, false, now, now)
}
