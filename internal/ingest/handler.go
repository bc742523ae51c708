package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

// upsertRequest is the wire form of one exposure upsert.
type upsertRequest struct {
	CapturedAt     string   `json:"capturedAt"`
	PM25           float64  `json:"pm25"`
	PM10           float64  `json:"pm10"`
	O3             float64  `json:"o3"`
	NO2            float64  `json:"no2"`
	CO             float64  `json:"co"`
	SO2            float64  `json:"so2"`
	AQI            int      `json:"aqi"`
	PHRI           float64  `json:"phri"`
	OutdoorMinutes int      `json:"outdoorMinutes"`
	Symptoms       []string `json:"symptoms"`
	WearingMask    bool     `json:"wearingMask"`
	Location       string   `json:"location"`
}

// errorResponse is the wire form of an error.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeJSON(w, status, errorResponse{Error: detail, RequestID: GetRequestID(r.Context())})
}

// Handler serves the exposure ingest API.
type Handler struct {
	repo    Repository
	metrics *Metrics
	log     zerolog.Logger
}

// NewHandler creates a new ingest handler. Metrics may be nil, in which
// case no instruments are recorded.
func NewHandler(repo Repository, metrics *Metrics, log zerolog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
		log:     log.With().Str("component", "ingest").Logger(),
	}
}

// RouterConfig holds configuration for the ingest router.
type RouterConfig struct {
	Version string
	Logger  zerolog.Logger

	// RateLimit is the per-IP request budget per minute. Zero means 100.
	RateLimit int
}

// NewRouter creates a chi router with the ingest API routes configured.
func (h *Handler) NewRouter(cfg RouterConfig) *chi.Mux {
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 100
	}

	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(RequestID)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware())
	}
	r.Use(RequestLogger(cfg.Logger))
	r.Use(Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(httprate.LimitByIP(rateLimit, time.Minute))

	r.Get("/health", h.Health(cfg.Version))

	r.Route("/v1/users/{userID}/exposures", func(r chi.Router) {
		r.Get("/", h.ListExposures)
		r.Route("/{dayKey}", func(r chi.Router) {
			r.Get("/", h.GetExposure)
			r.Put("/", h.PutExposure)
		})
	})

	return r
}

// Health reports service liveness.
func (h *Handler) Health(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	}
}

// PutExposure upserts the exposure record for (user, day). Replaying the
// same request any number of times leaves exactly one row.
func (h *Handler) PutExposure(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	dayKey := chi.URLParam(r, "dayKey")

	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "userID is required")
		return
	}
	if _, err := time.Parse("2006-01-02", dayKey); err != nil {
		writeError(w, r, http.StatusBadRequest, "dayKey must be formatted YYYY-MM-DD")
		return
	}

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	capturedAt, err := time.Parse(time.RFC3339, req.CapturedAt)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "capturedAt must be an RFC 3339 timestamp")
		return
	}

	// A symptomless day arrives as JSON null; the symptoms column is
	// NOT NULL, so a nil slice must not reach the database.
	symptoms := req.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	rec := &RemoteRecord{
		UserID:         userID,
		DayKey:         dayKey,
		CapturedAt:     capturedAt,
		PM25:           req.PM25,
		PM10:           req.PM10,
		O3:             req.O3,
		NO2:            req.NO2,
		CO:             req.CO,
		SO2:            req.SO2,
		AQI:            req.AQI,
		PHRI:           req.PHRI,
		OutdoorMinutes: req.OutdoorMinutes,
		Symptoms:       symptoms,
		WearingMask:    req.WearingMask,
		Location:       req.Location,
	}

	if err := h.repo.Upsert(r.Context(), rec); err != nil {
		h.log.Error().Err(err).
			Str("user_id", userID).
			Str("day_key", dayKey).
			Msg("exposure upsert failed")
		writeError(w, r, http.StatusInternalServerError, "failed to store exposure record")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUpsert(r.Context(), userID)
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetExposure retrieves the exposure record for (user, day).
func (h *Handler) GetExposure(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	dayKey := chi.URLParam(r, "dayKey")

	rec, err := h.repo.Get(r.Context(), userID, dayKey)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			writeError(w, r, http.StatusNotFound, "no exposure record for that day")
			return
		}
		h.log.Error().Err(err).
			Str("user_id", userID).
			Str("day_key", dayKey).
			Msg("exposure lookup failed")
		writeError(w, r, http.StatusInternalServerError, "failed to load exposure record")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// listResponse is the wire form of an exposure listing.
type listResponse struct {
	Records []RemoteRecord `json:"records"`
	Count   int            `json:"count"`
}

// ListExposures retrieves a user's records, optionally bounded by the
// from and to query parameters (inclusive day keys).
func (h *Handler) ListExposures(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", bound); err != nil {
			writeError(w, r, http.StatusBadRequest, "from and to must be formatted YYYY-MM-DD")
			return
		}
	}

	records, err := h.repo.List(r.Context(), userID, from, to)
	if err != nil {
		h.log.Error().Err(err).
			Str("user_id", userID).
			Msg("exposure list failed")
		writeError(w, r, http.StatusInternalServerError, "failed to list exposure records")
		return
	}

	if records == nil {
		records = []RemoteRecord{}
	}

	writeJSON(w, http.StatusOK, listResponse{Records: records, Count: len(records)})
}
