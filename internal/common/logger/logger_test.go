package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("order-service", &buf)

	lg.Info("order_created", map[string]any{"table_id": 3})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "order-service", entry["service"])
	assert.Equal(t, "order_created", entry["action"])
	assert.Equal(t, "order_created", entry["message"])
	assert.EqualValues(t, 3, entry["table_id"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestLogger_ErrorCarriesCause(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("auth", &buf)

	lg.Error("sign_in_failed", errors.New("boom"), nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	errObj, ok := entry["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", errObj["msg"])
}

func TestLogger_WithStampsFields(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("kitchen", &buf).With(map[string]any{"worker": "k1"})

	lg.Warn("slow_refresh", nil, nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "k1", entry["worker"])
}
