package logging

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/OkanBey11/ToDoApiWithGemini/config"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// New returns a logger configured from cfg. Unknown levels fall back to info.
func New(cfg config.LogConfig) *logrus.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	switch strings.ToLower(cfg.Format) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// RequestLogger is chi request-logging middleware backed by logger.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&StructuredLogger{Logger: logger})
}

// StructuredLogger implements middleware.LogFormatter.
type StructuredLogger struct {
	Logger logrus.FieldLogger
}

func (l *StructuredLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	fields := logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"remote_addr": r.RemoteAddr,
		"user_agent":  r.UserAgent(),
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		fields["req_id"] = reqID
	}
	return &StructuredLoggerEntry{Logger: l.Logger.WithFields(fields)}
}

// StructuredLoggerEntry is the per-request log entry.
type StructuredLoggerEntry struct {
	Logger logrus.FieldLogger
}

func (e *StructuredLoggerEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	e.Logger.WithFields(logrus.Fields{
		"status":      status,
		"bytes":       bytes,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("http_request")
}

func (e *StructuredLoggerEntry) Panic(v interface{}, stack []byte) {
	e.Logger.WithFields(logrus.Fields{
		"panic": fmt.Sprintf("%+v", v),
		"stack": string(stack),
	}).Error("http_panic")
}

// FromRequest returns the request-scoped logger installed by RequestLogger,
// or the standard logger when none is present.
func FromRequest(r *http.Request) logrus.FieldLogger {
	if entry, ok := middleware.GetLogEntry(r).(*StructuredLoggerEntry); ok {
		return entry.Logger
	}
	return logrus.StandardLogger()
}
