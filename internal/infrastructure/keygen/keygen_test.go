package keygen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/domain"
)

func TestGenerateAPIKey_RoundTrip(t *testing.T) {
	key, err := GenerateAPIKey("sk", "focus", "v1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key.FullKey, "sk-focus-v1-"))
	assert.Len(t, key.ShortToken, 12)
	assert.Len(t, key.LongSecret, 43)

	parsed, err := ParseAPIKey(key.FullKey)
	require.NoError(t, err)
	assert.Equal(t, key.ShortToken, parsed.ShortToken)
	assert.Equal(t, key.LongSecret, parsed.LongSecret)
	assert.Equal(t, HashSecret(key.LongSecret), HashSecret(parsed.LongSecret))
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	a, err := GenerateAPIKey("sk", "focus", "v1")
	require.NoError(t, err)
	b, err := GenerateAPIKey("sk", "focus", "v1")
	require.NoError(t, err)

	assert.NotEqual(t, a.FullKey, b.FullKey)
	assert.NotEqual(t, a.ShortToken, b.ShortToken)
}

func TestGenerateAPIKey_RejectsHyphenatedPrefix(t *testing.T) {
	_, err := GenerateAPIKey("sk", "focus-flow", "v1")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKeyFormat)
}

func TestParseAPIKey_SecretWithHyphens(t *testing.T) {
	parsed, err := ParseAPIKey("sk-focus-v1-abcdef123456-se-cr-et")
	require.NoError(t, err)
	assert.Equal(t, "se-cr-et", parsed.LongSecret)
}

func TestParseAPIKey_Invalid(t *testing.T) {
	for _, in := range []string{"", "sk-focus-v1", "sk-focus-v1--secret", "no hyphens"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAPIKey(in)
			assert.ErrorIs(t, err, domain.ErrInvalidAPIKeyFormat)
		})
	}
}

func TestMaskAndDisplay(t *testing.T) {
	key, err := GenerateAPIKey("sk", "focus", "v1")
	require.NoError(t, err)

	assert.Equal(t, "sk-***", MaskAPIKey(key.FullKey))
	assert.Equal(t, "***", MaskAPIKey("garbage"))
	assert.Equal(t, "sk-focus-v1-"+key.ShortToken+"-****", key.DisplayKey())
	assert.NotContains(t, key.DisplayKey(), key.LongSecret)
}
