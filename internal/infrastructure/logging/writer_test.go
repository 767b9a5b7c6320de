package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostrunctl/ghost/internal/domain/logging"
)

func TestConsoleWriterEncodesOneJSONLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	w := NewConsoleWriter(&buf)

	event := logging.NewEvent(logging.LevelWarn, "supervisor", "process crashed")
	event = event.With("processId", "app1")
	require.NoError(t, w.Write(event))

	var decoded jsonEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "warn", decoded.Level)
	assert.Equal(t, "supervisor", decoded.Component)
	assert.Equal(t, "process crashed", decoded.Message)
	assert.Equal(t, "app1", decoded.Fields["processId"])
	assert.NotEmpty(t, decoded.Timestamp)
}

func TestConsoleWriterCloseIsNoop(t *testing.T) {
	var buf bytes.Buffer
	w := NewConsoleWriter(&buf)
	assert.NoError(t, w.Close())
}

func TestValOrFallsBackOnNonPositive(t *testing.T) {
	assert.Equal(t, 7, valOr(7, 99))
	assert.Equal(t, 99, valOr(0, 99))
	assert.Equal(t, 99, valOr(-1, 99))
}
