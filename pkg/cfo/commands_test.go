package cfo

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommandPayload_CapitalizedShape(t *testing.T) {
	raw, err := json.Marshal(map[string]any{"Command": "cfo_stake", "Args": "100"})
	assert.NoError(t, err)

	cmd, args := parseCommandPayload(raw)
	assert.Equal(t, "cfo_stake", cmd)
	assert.Equal(t, "100", args)
}

func TestParseCommandPayload_LowercaseShape(t *testing.T) {
	raw, err := json.Marshal(map[string]any{"command": "cfo_stop", "detail": map[string]any{"x": 1}})
	assert.NoError(t, err)

	cmd, args := parseCommandPayload(raw)
	assert.Equal(t, "cfo_stop", cmd)
	assert.Equal(t, "", args)
}

func TestParseCommandPayload_Malformed(t *testing.T) {
	cmd, args := parseCommandPayload(json.RawMessage(`not json`))
	assert.Equal(t, "", cmd)
	assert.Equal(t, "", args)
}

func TestHandleCommand_StopAndStart(t *testing.T) {
	e := testEngine()
	e.logger = slog.Default()
	e.enabled.Store(true)

	e.handleCommand(nil, "cfo_stop", "")
	assert.False(t, e.enabled.Load())

	e.handleCommand(nil, "cfo_start", "")
	assert.True(t, e.enabled.Load())
}

func TestHandleCommand_UnknownCommandIsNoop(t *testing.T) {
	e := testEngine()
	e.enabled.Store(true)

	e.handleCommand(nil, "not_a_real_command", "")

	assert.True(t, e.enabled.Load())
}
