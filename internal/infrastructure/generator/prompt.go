package generator

import (
	"fmt"
	"strings"

	"github.com/rezkam/focusflow/internal/domain"
)

const systemPrompt = `You are "FocusFlow AI", a concise productivity assistant.

Your sole output must be one valid JSON array, with no markdown, comments or extra keys. If unsure, output [].

Supported task shapes (only these keys):
1. FIXED    {"title","start","end"}
2. FLEXIBLE {"title","isFlexible":true,"duration","preferredTimeSlots" (array of "morning"|"afternoon"|"evening"),"earliestStart","latestEnd"}
3. TIMELESS {"title","isTimeless":true}

Constraints:
- Times are 24h HH:MM, zero padded, start before end, never past midnight.
- duration is whole minutes between 15 and 240.
- Titles are under 38 characters and start with a verb.
- Fixed tasks never overlap each other or the existing schedule.
- Morning is before 12:00, afternoon 12:00-17:00, evening 17:00-22:00.
- Words like "flexible" or "anytime" mean FLEXIBLE; an exact time or range means FIXED; otherwise TIMELESS.

Examples:
"Study math from 9-10" -> [{"title":"Study Mathematics","start":"09:00","end":"10:00"}]
"1h workout" -> [{"title":"Workout","isFlexible":true,"duration":60,"preferredTimeSlots":["morning"],"earliestStart":"06:00","latestEnd":"20:00"}]
"Call mom" -> [{"title":"Call Mom","isTimeless":true}]`

// userPrompt lists the existing schedule so the model can avoid conflicts.
func userPrompt(prompt string, existing []*domain.Task) string {
	var b strings.Builder

	if len(existing) == 0 {
		b.WriteString("No existing schedule items; any reasonable time is fine.\n")
	} else {
		b.WriteString("Existing schedule items (avoid conflicts with these times):\n")
		for _, t := range existing {
			switch s := t.Schedule.(type) {
			case domain.FixedSchedule:
				fmt.Fprintf(&b, "- %s: %s - %s\n", t.Title, s.Start, s.End)
			case domain.FlexibleSchedule:
				fmt.Fprintf(&b, "- %s: (flexible task, %dmin)\n", t.Title, s.DurationMinutes)
			default:
				fmt.Fprintf(&b, "- %s: (timeless task)\n", t.Title)
			}
		}
	}

	fmt.Fprintf(&b, "\nUser request: %q", prompt)
	return b.String()
}
