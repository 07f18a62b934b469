package report

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/model"
)

// DefaultResolution is the H3 resolution used when none is requested.
const DefaultResolution = 7

// Handler serves a read-only view of one output dataset.
type Handler struct {
	records []model.EnrichedRecord
	router  chi.Router
}

// NewHandler builds the API router over records. allowedOrigins configures
// CORS; an empty list disables the CORS middleware.
func NewHandler(records []model.EnrichedRecord, allowedOrigins []string) *Handler {
	h := &Handler{records: records}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/records", h.listRecords)
		r.Get("/failures", h.failures)
		r.Get("/groups", h.groups)
		r.Get("/points", h.points)
		r.Get("/cells", h.cells)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": len(h.records)})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, KPIs(f.Apply(h.records)))
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	limit, err := intParam(r, "limit", DefaultSampleLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Sample(f.Apply(h.records), limit))
}

func (h *Handler) failures(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", DefaultFailureLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Failures(h.records, limit))
}

func (h *Handler) groups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Groups(h.records))
}

func (h *Handler) points(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	data, err := json.Marshal(GeoJSON(f.Apply(h.records)))
	if err != nil {
		serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) cells(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	res, err := intParam(r, "resolution", DefaultResolution)
	if err != nil {
		badRequest(w, err)
		return
	}
	cells, err := Cells(f.Apply(h.records), res)
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cells)
}

// parseFilter reads min_score, failed_only and group from the query string.
func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter
	if s := q.Get("min_score"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || v < 0 || v > 1 {
			return f, eris.Errorf("min_score must be a number in [0,1], got %q", s)
		}
		f.MinScore = v
	}
	if s := q.Get("failed_only"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return f, eris.Errorf("failed_only must be a boolean, got %q", s)
		}
		f.FailedOnly = v
	}
	f.Group = q.Get("group")
	return f, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, eris.Errorf("%s must be a non-negative integer, got %q", name, s)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("report: encode response", zap.Error(err))
	}
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func serverError(w http.ResponseWriter, err error) {
	zap.L().Error("report: handler failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
