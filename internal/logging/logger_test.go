package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")

	logger.Info("dropped")
	logger.WithField("period", "2024-01").Warn("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "2024-01", line["period"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger := New(&bytes.Buffer{}, "chatty", "text")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	LogError(logger, "seeder", "Import", "decode seed file", map[string]int{"line": 3}, errors.New("unexpected EOF"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "unexpected EOF", line["msg"])
	assert.Equal(t, "seeder", line["module"])
	assert.Equal(t, "Import", line["funcName"])
	assert.NotNil(t, line["data"])
}
