package athlete

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/roster/domain"
)

// Cmd is the athlete command group
var Cmd = NewCmd()

// NewCmd builds a fresh athlete command tree.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "athlete",
		Short: "Manage the athletes sessions are booked for",
	}
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

// athleteView is the JSON shape printed by the athlete commands.
type athleteView struct {
	ID             uuid.UUID `json:"id"`
	CoachID        uuid.UUID `json:"coach_id"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email,omitempty"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
}

func toView(a *domain.Athlete) athleteView {
	return athleteView{
		ID:             a.ID(),
		CoachID:        a.CoachID(),
		DisplayName:    a.DisplayName(),
		Email:          a.Email(),
		TelegramChatID: a.TelegramChatID(),
	}
}

func requireDirectory() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil || app.Directory == nil {
		return nil, fmt.Errorf("application not initialized - database connection required")
	}
	if app.CoachID == uuid.Nil {
		return nil, fmt.Errorf("no coach configured: set COACHBOOK_COACH_ID")
	}
	return app, nil
}
