package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// specFlags are the flags shared by every command that describes a
// candidate session.
type specFlags struct {
	coach    string
	athlete  string
	title    string
	date     string
	start    string
	end      string
	duration int
}

func (f *specFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.coach, "coach", "", "coach ID (default COACHBOOK_COACH_ID)")
	cmd.Flags().StringVarP(&f.athlete, "athlete", "a", "", "athlete ID the session is for")
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "session title")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "session date YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&f.start, "start", "s", "", "start time HH:MM")
	cmd.Flags().StringVarP(&f.end, "end", "e", "", "end time HH:MM")
	cmd.Flags().IntVarP(&f.duration, "duration", "m", 60, "duration in minutes, ignored when --end is set")
	_ = cmd.MarkFlagRequired("start")
}

func (f *specFlags) spec(app *cli.App) (commands.SessionSpec, error) {
	coachID, err := coachID(app, f.coach)
	if err != nil {
		return commands.SessionSpec{}, err
	}

	spec := commands.SessionSpec{
		ResourceID:      coachID,
		Title:           f.title,
		DurationMinutes: f.duration,
	}

	if f.athlete != "" {
		spec.SubjectID, err = uuid.Parse(f.athlete)
		if err != nil {
			return commands.SessionSpec{}, fmt.Errorf("invalid athlete ID: %w", err)
		}
	}

	spec.Date, err = parseDate(f.date)
	if err != nil {
		return commands.SessionSpec{}, err
	}

	spec.Start, err = domain.ParseClock(f.start)
	if err != nil {
		return commands.SessionSpec{}, err
	}

	if f.end != "" {
		end, err := domain.ParseClock(f.end)
		if err != nil {
			return commands.SessionSpec{}, err
		}
		spec.End = &end
	}

	return spec, nil
}

// coachID resolves --coach, falling back to the configured coach.
func coachID(app *cli.App, flag string) (uuid.UUID, error) {
	if flag == "" {
		if app.CoachID == uuid.Nil {
			return uuid.Nil, fmt.Errorf("no coach given: pass --coach or set COACHBOOK_COACH_ID")
		}
		return app.CoachID, nil
	}
	id, err := uuid.Parse(flag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid coach ID: %w", err)
	}
	return id, nil
}

// parseDate parses YYYY-MM-DD. Empty means today.
func parseDate(value string) (domain.Date, error) {
	if value == "" {
		return domain.DateOf(time.Now()), nil
	}
	return domain.ParseDate(value)
}

func requireApp() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil || app.ProposeSessionHandler == nil {
		return nil, fmt.Errorf("application not initialized - database connection required")
	}
	return app, nil
}
