package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWithWriter_JSONWhenNotDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, false)

	log.Debug("hidden")
	log.Info("import finished", zap.String("account_id", "acc-1"))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "import finished", entry["msg"])
	assert.Equal(t, "acc-1", entry["account_id"])
}

func TestNewWithWriter_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, true)

	log.Debug("window resolved")
	require.NoError(t, log.Sync())

	assert.Contains(t, buf.String(), "window resolved")
}
