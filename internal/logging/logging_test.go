package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSON(t *testing.T) {
	l := log.New()
	var buf bytes.Buffer
	require.NoError(t, configure(l, &buf, "debug", "json"))

	l.WithField("server", "origin-1").Debug("probe done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "probe done", entry["msg"])
	assert.Equal(t, "origin-1", entry["server"])
	assert.Equal(t, log.DebugLevel, l.GetLevel())
}

func TestConfigure_Defaults(t *testing.T) {
	l := log.New()
	require.NoError(t, configure(l, &bytes.Buffer{}, "", ""))
	assert.Equal(t, log.InfoLevel, l.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, l.Formatter)
}

func TestConfigure_Rejects(t *testing.T) {
	assert.Error(t, configure(log.New(), &bytes.Buffer{}, "loud", "text"))
	assert.Error(t, configure(log.New(), &bytes.Buffer{}, "info", "xml"))
}
