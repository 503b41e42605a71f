package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger appends one JSON line per security decision and terminal
// task event to an audit file. Writes are best-effort; callers treat
// failures as non-fatal.
type AuditLogger struct {
	logger *logrus.Logger
	file   *os.File
}

// NewAuditLogger opens (or creates) the audit trail at path.
func NewAuditLogger(path string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "event",
		},
	})
	log.SetOutput(file)

	return &AuditLogger{logger: log, file: file}, nil
}

// LogEvent records one audit entry. details must be JSON-marshalable.
func (a *AuditLogger) LogEvent(eventType string, details map[string]interface{}) {
	if a == nil {
		return
	}
	a.logger.WithField("details", details).Info(eventType)
}

// Close flushes and closes the underlying file.
func (a *AuditLogger) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}
