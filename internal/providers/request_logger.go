package providers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogFormatter plugs the category logger into chi's RequestLogger.
type RequestLogFormatter struct {
	logger Logger
}

type requestLogEntry struct {
	logger Logger
	method string
	path   string
	remote string
	id     string
}

func NewRequestLogFormatter(logger Logger) *RequestLogFormatter {
	return &RequestLogFormatter{logger: logger}
}

func (f *RequestLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestLogEntry{
		logger: f.logger,
		method: r.Method,
		path:   r.URL.Path,
		remote: r.RemoteAddr,
		id:     middleware.GetReqID(r.Context()),
	}
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	if status >= http.StatusInternalServerError {
		e.logger.Warnf(TypeApp, "%s %s -> %d (%dB, %s) from %s [%s]", e.method, e.path, status, bytes, elapsed, e.remote, e.id)
		return
	}
	e.logger.Debugf(TypeApp, "%s %s -> %d (%dB, %s) from %s [%s]", e.method, e.path, status, bytes, elapsed, e.remote, e.id)
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Errorf(TypeApp, "panic serving %s %s [%s]: %v\n%s", e.method, e.path, e.id, v, stack)
}
