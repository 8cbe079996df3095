package observability

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const traceHeader = "X-Trace-ID"

// routeClass buckets request paths for metric labels. The HTTP transport
// serves exactly one protocol endpoint plus probes, so labeling by class
// instead of raw path keeps cardinality flat no matter what clients send.
func routeClass(path string) string {
	switch path {
	case "/healthz", "/readyz":
		return "probe"
	case "/metrics":
		return "scrape"
	default:
		return "mcp"
	}
}

// Instrument wraps the transport handler with trace-ID propagation, request
// metrics and request logging. Probe and scrape traffic is counted but not
// logged; protocol requests are logged with their trace id so a query's
// audit entries can be correlated with the session that issued them.
func Instrument(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = newTraceID()
		}
		ctx := ContextWithTraceID(r.Context(), traceID)
		w.Header().Set(traceHeader, traceID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		route := routeClass(r.URL.Path)
		status := strconv.Itoa(recorder.status)
		elapsed := time.Since(start)
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, route, status).Observe(elapsed.Seconds())

		if logger == nil || route != "mcp" {
			return
		}
		logger.InfoContext(ctx, "mcp_request",
			slog.String("trace_id", traceID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.Int("status", recorder.status),
			slog.String("duration", elapsed.String()),
			slog.Int("bytes", recorder.bytes),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(body []byte) (int, error) {
	n, err := r.ResponseWriter.Write(body)
	r.bytes += n
	return n, err
}

func newTraceID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}
