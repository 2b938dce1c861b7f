package notify

import (
	"fmt"
	"html"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

func describe(session *domain.Session) string {
	title := session.Title()
	if title == "" {
		title = "Session"
	}
	return fmt.Sprintf("%s on %s, %s-%s", title, session.Date(), session.Start(), session.End())
}

func committedText(session *domain.Session, path domain.OutcomeKind) string {
	verb := "booked"
	switch path {
	case domain.OutcomeRescheduled:
		verb = "booked at a new time"
	case domain.OutcomeReplaced:
		verb = "booked in place of an earlier session"
	}
	return fmt.Sprintf("<b>%s</b> is %s.", html.EscapeString(describe(session)), verb)
}

func cancelledText(session *domain.Session, reason string) string {
	text := fmt.Sprintf("<b>%s</b> was cancelled.", html.EscapeString(describe(session)))
	if reason != "" {
		text += "\nReason: " + html.EscapeString(reason)
	}
	return text
}
