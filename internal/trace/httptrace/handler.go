// Package httptrace exposes the trace selector as a thin,
// read-only HTTP surface over chi — a caller can build an interactive
// trace view against it, rather than this being a production API the
// kernel itself serves. Plain http.HandlerFunc, json.NewEncoder, and
// explicit status codes, routed through github.com/go-chi/chi/v5.
package httptrace

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/kernelerr"
	"github.com/ledgerforge/kernel/internal/trace"
)

// Handler wires the trace selector into a chi router.
type Handler struct {
	Selector *trace.Selector
}

// NewRouter builds a chi.Router exposing GET /events/{eventID}/trace and
// GET /journal-entries/{entryID}/trace, each returning a TraceBundle as
// JSON or, with ?format=text, the rendered narrative.
func NewRouter(selector *trace.Selector) chi.Router {
	h := &Handler{Selector: selector}
	r := chi.NewRouter()
	r.Get("/events/{eventID}/trace", h.traceByEvent)
	r.Get("/journal-entries/{entryID}/trace", h.traceByJournalEntry)
	return r
}

func (h *Handler) traceByEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	bundle, err := h.Selector.TraceByEventID(r.Context(), id)
	if err != nil {
		writeKernelError(w, err)
		return
	}
	writeBundle(w, r, bundle)
}

func (h *Handler) traceByJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid journal entry id")
		return
	}
	bundle, err := h.Selector.TraceByJournalEntryID(r.Context(), id)
	if err != nil {
		writeKernelError(w, err)
		return
	}
	writeBundle(w, r, bundle)
}

func writeBundle(w http.ResponseWriter, r *http.Request, bundle trace.Bundle) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(trace.RenderNarrative(bundle)))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(bundle)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeKernelError(w http.ResponseWriter, err error) {
	if ke, ok := err.(*kernelerr.KernelError); ok {
		writeError(w, ke.Code.HTTPStatus(), ke.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
