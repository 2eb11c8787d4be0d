package schedule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/domain"
)

func TestSanitize(t *testing.T) {
	inputs := Sanitize([]Descriptor{
		{Title: strings.Repeat("x", 50), Start: "09:00", End: "10:00"},
		{Title: "", IsTimeless: true},
		{Title: "Short flex", IsFlexible: true, Duration: 5},
		{Title: "Too long", IsFlexible: true, Duration: 300},
		{Title: "No duration", IsFlexible: true},
		{Title: "Slots", IsFlexible: true, Duration: 30, PreferredSlots: []string{"night", "evening", "morning", "afternoon", "anytime"}, EarliestStart: "7am"},
		{Title: "Missing end", Start: "09:00"},
		{Title: "Overnight", Start: "23:00", End: "01:00"},
	})
	require.Len(t, inputs, 4)

	assert.Len(t, []rune(inputs[0].Title), MaxGeneratedTitle)
	assert.Equal(t, domain.ScheduleFixed, inputs[0].Schedule.Kind)

	assert.Equal(t, "Untitled", inputs[1].Title)
	assert.Equal(t, domain.ScheduleTimeless, inputs[1].Schedule.Kind)

	assert.Equal(t, domain.MinFlexibleMinutes, inputs[2].Schedule.Flexible.DurationMinutes)

	slots := inputs[3].Schedule.Flexible
	assert.Equal(t, []string{"evening", "morning", "afternoon"}, slots.PreferredSlots)
	assert.Equal(t, "06:00", slots.EarliestStart)
	assert.Equal(t, "22:00", slots.LatestEnd)
}
