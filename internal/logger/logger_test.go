package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "warn", "json")

	log.Info("hidden")
	log.WithField("batch_id", "b-1").Warn("Reconciled model output")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "b-1", entry["batch_id"])
	assert.Equal(t, "Reconciled model output", entry["msg"])
}

func TestNewWithOutputText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "bogus", "text")

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	log.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
