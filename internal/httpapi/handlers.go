package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"parking-analytics/internal/parking"
	"parking-analytics/internal/reports"
	"parking-analytics/internal/telemetry"
	"parking-analytics/internal/visuals"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SnapshotErrorHeader carries the upstream failure when a degraded (empty)
// snapshot was used to build the response.
const SnapshotErrorHeader = "X-Snapshot-Error"

// Handler serves the report endpoints.
type Handler struct {
	src     SnapshotSource
	loc     *time.Location
	limit   int
	charts  bool
	nowFunc func() time.Time
}

type kindInfo struct {
	Kind        reports.Kind `json:"kind"`
	Description string       `json:"description"`
}

type refreshResponse struct {
	FacilityID    string                 `json:"facility_id"`
	Sessions      int                    `json:"sessions"`
	Payments      int                    `json:"payments"`
	Subscriptions int                    `json:"subscriptions"`
	Shifts        int                    `json:"shifts"`
	Dropped       parking.NormalizeStats `json:"dropped"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	out := make([]kindInfo, 0, len(reports.Kinds))
	for _, k := range reports.Kinds {
		out = append(out, kindInfo{Kind: k, Description: k.Describe()})
	}
	writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(visuals.Markdown(rep, h.charts)))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, rep)
}

func (h *Handler) GetReportPage(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	page, err := visuals.HTML("Facility "+rep.FacilityID, rep)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render report page")
		writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Error: "failed to render report"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (h *Handler) GetAllReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	facility := chi.URLParam(r, "facility")

	params, err := h.params(r)
	if err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	snap := h.snapshot(ctx, w, facility)

	all := reports.BuildAllObserved(snap, params, func(k reports.Kind, d time.Duration) {
		telemetry.ObserveReportDuration(string(k), "http", d)
	})
	writeJSON(ctx, w, http.StatusOK, all)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	facility := chi.URLParam(r, "facility")

	snap, err := h.src.Refresh(ctx, facility)
	if err != nil {
		logger.Error().Err(err).Str("facility", facility).Msg("refresh failed")
		writeJSON(ctx, w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(ctx, w, http.StatusOK, refreshResponse{
		FacilityID:    facility,
		Sessions:      len(snap.Sessions),
		Payments:      len(snap.Payments),
		Subscriptions: len(snap.Subscriptions),
		Shifts:        len(snap.Shifts),
		Dropped:       snap.Dropped,
	})
}

// build resolves the kind, params and snapshot of a single-report request.
// It writes the error response itself and reports false on failure.
func (h *Handler) build(w http.ResponseWriter, r *http.Request) (reports.Report, bool) {
	ctx := r.Context()
	facility := chi.URLParam(r, "facility")

	kind, err := reports.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return reports.Report{}, false
	}
	params, err := h.params(r)
	if err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return reports.Report{}, false
	}
	snap := h.snapshot(ctx, w, facility)

	start := time.Now()
	rep, err := reports.Build(kind, snap, params)
	if err != nil {
		writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return reports.Report{}, false
	}
	telemetry.ObserveReport(string(kind), "http", start)
	return rep, true
}

func (h *Handler) params(r *http.Request) (reports.Params, error) {
	q := r.URL.Query()
	return reports.ParseParams(q.Get("from"), q.Get("to"), q.Get("policy"), h.loc, h.nowFunc(), h.limit)
}

// snapshot never fails: upstream errors degrade to the empty snapshot and are
// surfaced through a response header.
func (h *Handler) snapshot(ctx context.Context, w http.ResponseWriter, facility string) parking.Snapshot {
	snap, err := h.src.Get(ctx, facility)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("facility", facility).Msg("serving empty snapshot")
		w.Header().Set(SnapshotErrorHeader, err.Error())
		if snap.FacilityID == "" {
			snap = parking.EmptySnapshot(facility)
		}
	}
	return snap
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, context.Canceled) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}
