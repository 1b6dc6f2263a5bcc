package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyplan/internal/metrics"
	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/service"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))

const requestIDHeader = "X-Request-ID"

type Server struct {
	svc     *service.Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Server)

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records request counts and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

type itemRow struct {
	Item     model.Item
	Start    string
	End      string
	Duration string
	IndentPx int
}

func NewServer(svc *service.Service, opts ...Option) *Server {
	s := &Server{svc: svc, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.indexHandler)

	for _, res := range s.resources() {
		base := "/api/" + res.name
		mux.HandleFunc("GET "+base, s.listHandler(res))
		mux.HandleFunc("POST "+base, s.createHandler(res))
		mux.HandleFunc("DELETE "+base, s.deleteAllHandler(res))
		mux.HandleFunc("GET "+base+"/{id}", s.getHandler(res))
		mux.HandleFunc("PUT "+base+"/{id}", s.updateHandler(res))
		mux.HandleFunc("DELETE "+base+"/{id}", s.deleteHandler(res))
	}
	mux.HandleFunc("GET /api/groups/{id}/members", s.groupMembersHandler)
	mux.HandleFunc("GET /api/history", s.historyHandler)
	mux.HandleFunc("GET /api/prioritized", s.prioritizedHandler)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.withRequestLog(mux)
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plain := s.svc.ListPlain(ctx)
	groups := s.svc.ListGroups(ctx)

	data := struct {
		Total       int
		Plain       []itemRow
		Groups      []itemRow
		Prioritized []itemRow
		History     []itemRow
	}{
		Total:       len(plain) + len(groups),
		Plain:       buildRows(plain, 0),
		Groups:      s.buildGroupRows(r, groups),
		Prioritized: buildRows(s.svc.Prioritized(ctx), 0),
		History:     buildRows(s.svc.History(ctx), 0),
	}

	if err := indexTemplate.Execute(w, data); err != nil {
		s.log.Error("render index", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// buildGroupRows lists each group followed by its members, indented.
func (s *Server) buildGroupRows(r *http.Request, groups []model.Item) []itemRow {
	rows := make([]itemRow, 0, len(groups))
	for _, group := range groups {
		rows = append(rows, buildRows([]model.Item{group}, 0)...)
		rows = append(rows, buildRows(s.svc.ListGroupMembers(r.Context(), group.ID), 1)...)
	}
	return rows
}

func buildRows(items []model.Item, depth int) []itemRow {
	rows := make([]itemRow, 0, len(items))
	for _, item := range items {
		row := itemRow{Item: item, IndentPx: depth * 20}
		if item.StartAt != nil {
			row.Start = item.StartAt.Format("2006-01-02 15:04")
		}
		if end := item.EndAt(); end != nil {
			row.End = end.Format("2006-01-02 15:04")
		}
		if item.Duration != nil && (item.StartAt != nil || *item.Duration > 0) {
			row.Duration = item.Duration.String()
		}
		rows = append(rows, row)
	}
	return rows
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog tags each request with an id, logs it and records its
// latency under the matched route pattern.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(started)
		route := routeLabel(r.Pattern)
		s.log.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration", elapsed,
		)
		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
		}
	})
}

func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func invalidID(value string) error {
	return fmt.Errorf("invalid id %q", value)
}
