package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/infrastructure/observability"
)

func TestSetup_Disabled(t *testing.T) {
	var buf bytes.Buffer
	tel, err := observability.Setup(context.Background(), observability.Config{
		Level:  slog.LevelWarn,
		Output: &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, tel.Logger)

	tel.Logger.Info("dropped")
	tel.Logger.Warn("kept", "task_id", "t1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "t1", record["task_id"])

	assert.NoError(t, tel.Shutdown(context.Background()))
}
