package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common booking workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("book_session").
		Description("Walk through booking a session, including what to do when the slot is taken.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Book a coaching session",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Help me book a coaching session.

1. Look up the athlete with athlete.list (or the coachbook://athletes resource).
2. Call session.propose with the date, start time and duration.
3. If the result has "committed", the session is booked. Confirm it to me.
4. If it has "conflicts", show me the conflicting sessions and the offered
   "slots", then ask which strategy I want:
   - reschedule: book at one of the offered slots (pass slot_start and slot_date)
   - replace: book at the requested time and cancel the conflicting sessions
   - force: book at the requested time and keep the overlap
5. Call session.resolve with the same session fields and my chosen strategy.

Never pick a strategy on my behalf.`,
						},
					},
				},
			}, nil
		})

	srv.Prompt("weekly_overview").
		Description("Summarize the coming week of sessions and spot overloaded days.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Weekly session overview",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Read the coachbook://sessions/week resource and give me:

- the number of sessions per day
- any sessions marked allow_overlap
- days with less than 30 minutes between consecutive sessions

Suggest free slots with session.slots where a day looks overloaded.`,
						},
					},
				},
			}, nil
		})

	return nil
}
