package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	New(WithWriter(&buf)).Info("hello", "key", "value")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "key=value")
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	New(WithWriter(&buf)).Debug("hidden")
	assert.Empty(t, buf.String())

	New(WithWriter(&buf), WithDebug(true)).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	New(WithWriter(&buf), WithJSON(true)).Info("structured", "count", 42)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "structured", parsed["msg"])
	assert.EqualValues(t, 42, parsed["count"])
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	New(WithWriter(&buf), WithPretty(true)).Info("pretty output")
	assert.Contains(t, buf.String(), "pretty output")
}

func TestMulti(t *testing.T) {
	var text, js bytes.Buffer
	l := Multi(
		New(WithWriter(&text)),
		New(WithWriter(&js), WithJSON(true), WithDebug(true)),
	)
	l.Debug("only json")
	l.With("component", "test").Info("both")

	assert.NotContains(t, text.String(), "only json")
	assert.Contains(t, text.String(), "component=test")
	assert.Contains(t, js.String(), "only json")
	assert.Contains(t, js.String(), `"component":"test"`)
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
