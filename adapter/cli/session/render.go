package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
)

func printSession(w io.Writer, s queries.SessionDTO) {
	title := s.Title
	if title == "" {
		title = "(untitled)"
	}
	marker := ""
	if s.AllowOverlap {
		marker = " [overlap]"
	}
	if s.Status == "cancelled" {
		marker += " [cancelled]"
	}
	fmt.Fprintf(w, "  %s %s-%s  %s%s\n", s.Date, s.Start, s.End, title, marker)
	fmt.Fprintf(w, "    ID: %s\n", s.ID)
}

func printConflicts(w io.Writer, conflicts []queries.SessionDTO) {
	fmt.Fprintf(w, "Conflicts (%d):\n", len(conflicts))
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, c := range conflicts {
		printSession(w, c)
	}
}

func printSlots(w io.Writer, slots []queries.SlotDTO) {
	if len(slots) == 0 {
		fmt.Fprintln(w, "No free alternative slots found.")
		return
	}
	fmt.Fprintf(w, "Free slots (%d):\n", len(slots))
	for i, s := range slots {
		day := "same day"
		if !s.IsSameDay {
			day = "later"
		}
		fmt.Fprintf(w, "  %d. %s %s-%s  (%s)\n", i+1, s.Date, s.Start, s.End, day)
	}
}
