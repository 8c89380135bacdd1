package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(&buf, "warn", false), "server")

	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn().Str("form_id", "f1").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, "f1", entry["form_id"])
	assert.Equal(t, "kept", entry["message"])
}

func TestNewUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "loud", false)

	logger.Debug().Msg("dropped")
	logger.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "dropped")
}
