package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daemon.log")

	log, err := CreateLogger(path, "info", "json", false)
	require.NoError(t, err)
	log.Info("daemon started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "daemon started", line["msg"])
	assert.Equal(t, "info", line["level"])
	assert.NotEmpty(t, line["time"])
}

func TestCreateLogger_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	log, err := CreateLogger(path, "warning", "text", false)
	require.NoError(t, err)
	log.Info("quiet")
	log.Warn("loud")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestCreateLogger_InvalidLevel(t *testing.T) {
	_, err := CreateLogger("", "shouty", "text", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestCreateLogger_UnsupportedFormat(t *testing.T) {
	_, err := CreateLogger("", "info", "xml", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported log format")
}

func TestCreateTestLogger_IsQuiet(t *testing.T) {
	log := CreateTestLogger()
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	require.NotPanics(t, func() {
		log.Info("discarded")
		log.Warn("also discarded")
	})
}

func TestAuditLogger_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")

	audit, err := NewAuditLogger(path)
	require.NoError(t, err)

	audit.LogEvent("task_submitted", map[string]interface{}{"task_id": "t1", "goal": "open firefox"})
	audit.LogEvent("security_blocked", map[string]interface{}{"reason": "Dangerous step: rm -rf /"})
	require.NoError(t, audit.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "task_submitted", first["event"])
	assert.NotEmpty(t, first["timestamp"])

	details, ok := first["details"].(map[string]interface{})
	require.True(t, ok, "details survive as a JSON object")
	assert.Equal(t, "t1", details["task_id"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "security_blocked", second["event"])
}

func TestAuditLogger_NilIsSafe(t *testing.T) {
	var audit *AuditLogger

	require.NotPanics(t, func() {
		audit.LogEvent("task_submitted", nil)
		require.NoError(t, audit.Close())
	})
}
