package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONAddsSeverity(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "info", FormatJSON)
	require.NoError(t, err)

	l.WithField("attempt", 2).Warn("discovery attempt failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warning", line["severity"])
	assert.Equal(t, float64(2), line["attempt"])
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", FormatText)
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", FormatText)
	require.NoError(t, err)

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSeverityHookKeepsExisting(t *testing.T) {
	entry := &log.Entry{Level: log.ErrorLevel, Data: log.Fields{"severity": "custom"}}
	require.NoError(t, SeverityHook{}.Fire(entry))
	assert.Equal(t, "custom", entry.Data["severity"])
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	l := Discard()
	assert.Same(t, l, OrDiscard(l))
}
