package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

func replyWith(text string) string {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestGemini_Generate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		_, _ = w.Write([]byte(replyWith("```json\n" + `[
			{"title":"Study Mathematics","start":"09:00","end":"10:00"},
			{"title":"Workout","isFlexible":true,"duration":60,"preferredTimeSlots":["morning"],"earliestStart":"06:00","latestEnd":"20:00"},
			{"title":"Call Mom","isTimeless":true}
		]` + "\n```")))
	}))
	t.Cleanup(srv.Close)

	g := New(Config{APIKey: "secret", Model: "test-model", BaseURL: srv.URL + "/v1beta", HTTPClient: srv.Client()})
	existing := []*domain.Task{{
		Title: "Standup",
		Schedule: domain.FixedSchedule{
			Start: timeutil.MustParseTime("08:30"),
			End:   timeutil.MustParseTime("08:45"),
		},
	}}

	descs, err := g.Generate(context.Background(), "plan my morning", existing)
	require.NoError(t, err)

	require.Len(t, descs, 3)
	assert.Equal(t, schedule.Descriptor{Title: "Study Mathematics", Start: "09:00", End: "10:00"}, descs[0])
	assert.True(t, descs[1].IsFlexible)
	assert.Equal(t, 60, descs[1].Duration)
	assert.Equal(t, []string{"morning"}, descs[1].PreferredSlots)
	assert.True(t, descs[2].IsTimeless)

	require.Len(t, got.Contents, 1)
	text := got.Contents[0].Parts[0].Text
	assert.Contains(t, text, "- Standup: 08:30 - 08:45")
	assert.Contains(t, text, `"plan my morning"`)
	assert.Equal(t, 1, got.GenerationConfig.CandidateCount)
}

func TestGemini_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid"}}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"no array in reply", http.StatusOK, replyWith("Sorry, I can't help with that.")},
		{"broken array", http.StatusOK, replyWith(`[{"title":]`)},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			g := New(Config{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
			_, err := g.Generate(context.Background(), "anything", nil)

			assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
		})
	}
}

func TestGemini_NoKey(t *testing.T) {
	_, err := New(Config{}).Generate(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
}

func TestUserPrompt_EmptySchedule(t *testing.T) {
	assert.Contains(t, userPrompt("x", nil), "No existing schedule items")
}
