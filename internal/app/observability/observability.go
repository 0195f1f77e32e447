package observability

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizhub/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const unmatchedRoute = "unmatched"

type key struct {
	Method string
	Route  string
	Status int
}

type stat struct {
	Count     int64
	LatencyMS float64
}

type Collector struct {
	db *sql.DB

	mu           sync.RWMutex
	requestStats map[key]stat
	startedAt    time.Time
}

func NewCollector(db *sql.DB) *Collector {
	return &Collector{
		db:           db,
		requestStats: make(map[key]stat),
		startedAt:    time.Now(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts keyed by the matched chi route pattern
// and writes one JSON log line per request. It must run inside a chi router.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, slot := auth.WithUserSlot(r.Context())
		r = r.WithContext(ctx)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		route, quizID := routeLabel(chi.RouteContext(r.Context()))
		c.observe(key{Method: r.Method, Route: route, Status: rec.status}, latencyMS)

		entry := map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"user_id":    slot.UserID(),
			"quiz_id":    quizID,
			"method":     r.Method,
			"route":      route,
			"path":       r.URL.Path,
			"status":     rec.status,
			"latency_ms": latencyMS,
			"remote_ip":  strings.TrimSpace(r.RemoteAddr),
		}
		b, _ := json.Marshal(entry)
		log.Printf("%s", string(b))
	})
}

func (c *Collector) observe(k key, latencyMS float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.requestStats[k]
	s.Count++
	s.LatencyMS += latencyMS
	c.requestStats[k] = s
}

func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	statsCopy := make(map[key]stat, len(c.requestStats))
	for k, v := range c.requestStats {
		statsCopy[k] = v
	}
	startedAt := c.startedAt
	c.mu.RUnlock()

	keys := make([]key, 0, len(statsCopy))
	for k := range statsCopy {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		if keys[i].Route != keys[j].Route {
			return keys[i].Route < keys[j].Route
		}
		return keys[i].Status < keys[j].Status
	})

	var sb strings.Builder
	sb.WriteString("# quizhub observability metrics\n")
	sb.WriteString("# TYPE quizhub_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("quizhub_uptime_seconds %.0f\n", time.Since(startedAt).Seconds()))

	sb.WriteString("# TYPE quizhub_http_requests_total counter\n")
	sb.WriteString("# TYPE quizhub_http_request_latency_ms_sum counter\n")
	sb.WriteString("# TYPE quizhub_http_request_latency_ms_avg gauge\n")
	for _, k := range keys {
		s := statsCopy[k]
		labels := fmt.Sprintf("method=\"%s\",route=\"%s\",status=\"%d\"", k.Method, k.Route, k.Status)
		sb.WriteString(fmt.Sprintf("quizhub_http_requests_total{%s} %d\n", labels, s.Count))
		sb.WriteString(fmt.Sprintf("quizhub_http_request_latency_ms_sum{%s} %.3f\n", labels, s.LatencyMS))
		avg := 0.0
		if s.Count > 0 {
			avg = s.LatencyMS / float64(s.Count)
		}
		sb.WriteString(fmt.Sprintf("quizhub_http_request_latency_ms_avg{%s} %.3f\n", labels, avg))
	}

	if c.db != nil {
		dbs := c.db.Stats()
		sb.WriteString("# TYPE quizhub_db_open_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizhub_db_open_connections %d\n", dbs.OpenConnections))
		sb.WriteString("# TYPE quizhub_db_in_use_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizhub_db_in_use_connections %d\n", dbs.InUse))
		sb.WriteString("# TYPE quizhub_db_idle_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizhub_db_idle_connections %d\n", dbs.Idle))
		sb.WriteString("# TYPE quizhub_db_wait_count counter\n")
		sb.WriteString(fmt.Sprintf("quizhub_db_wait_count %d\n", dbs.WaitCount))
		sb.WriteString("# TYPE quizhub_db_wait_duration_ms counter\n")
		sb.WriteString(fmt.Sprintf("quizhub_db_wait_duration_ms %.3f\n", float64(dbs.WaitDuration.Microseconds())/1000.0))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

// routeLabel returns the matched route pattern, or unmatchedRoute, and the
// quiz id bound to the {id} parameter. Every route with {id} names a quiz.
func routeLabel(rctx *chi.Context) (string, int64) {
	if rctx == nil {
		return unmatchedRoute, 0
	}
	route := rctx.RoutePattern()
	if route == "" {
		route = unmatchedRoute
	}
	quizID, err := strconv.ParseInt(rctx.URLParam("id"), 10, 64)
	if err != nil {
		quizID = 0
	}
	return route, quizID
}
