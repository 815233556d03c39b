// Package debughttp serves a read-only JSON view of a running client.
package debughttp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vibecraft.ai/internal/client"
	"vibecraft.ai/internal/protocol"
)

// Source is the part of *client.Client the inspector reads.
type Source interface {
	Status() client.Status
	Frame() client.Frame
	Logs() []protocol.LogEntry
	VibeSessions() []client.VibeSession
}

func Routes(src Source) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Get("/status", Status(src))
	r.Get("/entities", Entities(src))
	r.Get("/entities/{id}", Entity(src))
	r.Get("/logs", Logs(src))
	r.Get("/vibe", Vibe(src))
	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Status(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Status())
	}
}

func Entities(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := src.Frame()
		kind := protocol.EntityKind(r.URL.Query().Get("kind"))
		out := make([]protocol.EntityDelta, 0, len(f.Entities))
		for _, e := range f.Entities {
			if kind == "" || e.Kind == kind {
				out = append(out, e)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Entity(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad entity id", http.StatusBadRequest)
			return
		}
		for _, e := range src.Frame().Entities {
			if e.ID == id {
				writeJSON(w, http.StatusOK, e)
				return
			}
		}
		http.Error(w, "entity not found", http.StatusNotFound)
	}
}

func Logs(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Logs())
	}
}

func Vibe(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.VibeSessions())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
