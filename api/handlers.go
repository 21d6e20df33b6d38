/*
handlers.go - HTTP API handlers for the rating engine

PURPOSE:
  Exposes the permanent-disability rating engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Ratings:
    POST   /api/ratings                 Rate a claimant, JSON result
    POST   /api/ratings/report          Rate a claimant, plain-text sheet

  Reference data:
    GET    /api/occupations?q=&limit=   Search the occupation directory
    GET    /api/occupations/resolve     Occupation text to group number
    GET    /api/variants                Variant for a group and body part
    GET    /api/schedule                Active rating schedule

  Scenarios:
    GET    /api/scenarios               List demo claimants
    POST   /api/scenarios/{id}/run      Rate a demo claimant

  Admin:
    POST   /api/admin/reload            Reload reference tables from source
    GET    /api/health                  Liveness and table sizes

ARCHITECTURE:
  Handler holds the current engine behind an atomic pointer. A reload
  builds a new engine from the source and swaps it in; requests in flight
  keep the engine they started with.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown occupation, variant or scenario on lookup endpoints
  - 422: Rating requests whose reference lookups fail
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo claimants
  - scheduler.go: Periodic table reload
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/warp/pd-rating/factory"
	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/lookup"
	"github.com/warp/pd-rating/rating"
)

// DefaultSearchLimit caps occupation search results.
const DefaultSearchLimit = 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Counter reports reference table row counts, e.g. a SQL store.
type Counter interface {
	Counts(ctx context.Context) (map[string]int, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	// Source is re-read by Reload. Nil disables reloading.
	Source lookup.Source
	// Counter, when set, adds stored row counts to the health report.
	Counter Counter

	options []rating.Option
	engine  atomic.Pointer[rating.Engine]
}

// NewHandler creates a handler serving engine. opts are reapplied to
// engines built by Reload.
func NewHandler(engine *rating.Engine, src lookup.Source, opts ...rating.Option) *Handler {
	h := &Handler{Source: src, options: opts}
	h.engine.Store(engine)
	return h
}

// Engine returns the engine currently serving requests.
func (h *Handler) Engine() *rating.Engine {
	return h.engine.Load()
}

// Reload rebuilds the engine from Source with the current schedule.
func (h *Handler) Reload(ctx context.Context) (lookup.Stats, error) {
	if h.Source == nil {
		return lookup.Stats{}, errors.New("no reference source configured")
	}
	engine, err := rating.Load(ctx, h.Source, h.Engine().Schedule(), h.options...)
	if err != nil {
		return lookup.Stats{}, err
	}
	h.engine.Store(engine)
	return engine.Tables().Stats(), nil
}

// =============================================================================
// RATING HANDLERS
// =============================================================================

// CreateRating rates a claimant.
func (h *Handler) CreateRating(w http.ResponseWriter, r *http.Request) {
	res, ok := h.rate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ToRatingDTO(res))
}

// CreateReport rates a claimant and returns the plain-text rating sheet.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	res, ok := h.rate(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rating.Report(res)))
}

func (h *Handler) rate(w http.ResponseWriter, r *http.Request) (*rating.Result, bool) {
	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return nil, false
	}

	rr, err := req.ToRequest()
	if err != nil {
		writeRatingError(w, err)
		return nil, false
	}
	res, err := h.Engine().Compute(r.Context(), rr)
	if err != nil {
		writeRatingError(w, err)
		return nil, false
	}
	return res, true
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// SearchOccupations lists occupations whose title contains q.
func (h *Handler) SearchOccupations(w http.ResponseWriter, r *http.Request) {
	limit := DefaultSearchLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	found := h.Engine().Tables().SearchOccupations(r.URL.Query().Get("q"), limit)
	dtos := make([]OccupationDTO, len(found))
	for i, o := range found {
		dtos[i] = OccupationDTO{Group: o.Group, Title: o.Title, Industry: o.Industry}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResolveOccupation maps occupation text to a group number.
func (h *Handler) ResolveOccupation(w http.ResponseWriter, r *http.Request) {
	occupation := r.URL.Query().Get("occupation")
	group, err := h.Engine().Tables().ResolveGroup(occupation)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveDTO{Occupation: occupation, Group: group})
}

// ResolveVariant returns the variant letter for a group and either a body
// part description or an impairment code.
func (h *Handler) ResolveVariant(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tables := h.Engine().Tables()

	group, err := strconv.Atoi(q.Get("group"))
	if err != nil {
		// Occupation text is accepted in place of a number.
		if group, err = tables.ResolveGroup(q.Get("group")); err != nil {
			writeLookupError(w, err)
			return
		}
	}

	bodyPart := q.Get("body_part")
	code := strings.TrimSpace(q.Get("impairment_code"))
	if code == "" {
		if strings.TrimSpace(bodyPart) == "" {
			writeError(w, http.StatusBadRequest, "body_part or impairment_code is required", nil)
			return
		}
		code = rating.CodeFor(bodyPart)
	}

	m, err := tables.ResolveVariant(group, code)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VariantDTO{
		Group:          group,
		BodyPart:       bodyPart,
		ImpairmentCode: code,
		Variant:        string(m.Variant),
		Partition:      m.Partition,
		Row:            m.BodyPart,
		Fallback:       m.Fallback,
	})
}

// GetSchedule returns the active rating schedule.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.ToJSON(h.Engine().Schedule()))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerReload reloads reference tables now.
func (h *Handler) TriggerReload(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload reference tables", err)
		return
	}
	log.Printf("[API] Reloaded reference tables: %d occupations", stats.Occupations)
	writeJSON(w, http.StatusOK, stats)
}

// Health reports liveness, the schedule and table sizes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	engine := h.Engine()
	dto := HealthDTO{
		Status:        "ok",
		Schedule:      engine.Schedule().Name,
		FailurePolicy: string(engine.Schedule().FailurePolicy),
		Tables:        engine.Tables().Stats(),
		Groups:        len(engine.Tables().Groups()),
	}
	if h.Counter != nil {
		rows, err := h.Counter.Counts(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "Reference store unavailable", err)
			return
		}
		dto.Rows = rows
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeRatingError maps engine errors. Lookup misses are the request's
// fault but not malformed, hence 422.
func writeRatingError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid rating request", err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusUnprocessableEntity, "Rating failed", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Rating cancelled", err)
	default:
		writeError(w, http.StatusInternalServerError, "Rating failed", err)
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid lookup", err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "Lookup failed", err)
	}
}
