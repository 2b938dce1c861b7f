package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/coachbook/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrAthleteNotFound = errors.New("athlete not found")
	ErrMissingCoach    = errors.New("coach is required")
	ErrMissingName     = errors.New("display name is required")
	ErrInvalidEmail    = errors.New("invalid email address")
)

// Athlete is someone a coach books sessions for.
type Athlete struct {
	sharedDomain.BaseEntity
	coachID        uuid.UUID
	displayName    string
	email          string
	telegramChatID int64
}

// NewAthlete registers a new athlete under a coach. Email and Telegram chat
// are optional contact handles.
func NewAthlete(coachID uuid.UUID, displayName, email string, telegramChatID int64) (*Athlete, error) {
	if coachID == uuid.Nil {
		return nil, ErrMissingCoach
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrMissingName
	}
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidEmail
		}
	}
	return &Athlete{
		BaseEntity:     sharedDomain.NewBaseEntity(),
		coachID:        coachID,
		displayName:    displayName,
		email:          email,
		telegramChatID: telegramChatID,
	}, nil
}

// RehydrateAthlete rebuilds an athlete from persisted state.
func RehydrateAthlete(id, coachID uuid.UUID, displayName, email string, telegramChatID int64, createdAt, updatedAt time.Time) *Athlete {
	return &Athlete{
		BaseEntity:     sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		coachID:        coachID,
		displayName:    displayName,
		email:          email,
		telegramChatID: telegramChatID,
	}
}

func (a *Athlete) CoachID() uuid.UUID    { return a.coachID }
func (a *Athlete) DisplayName() string   { return a.displayName }
func (a *Athlete) Email() string         { return a.email }
func (a *Athlete) TelegramChatID() int64 { return a.telegramChatID }
func (a *Athlete) HasTelegram() bool     { return a.telegramChatID != 0 }
