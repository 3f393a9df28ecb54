// Package handlers wires the yardgate HTTP surface: the movement submission
// endpoint, the temp upload surface, the yard registry read, and health
// checks. Handlers are thin; all workflow logic lives in internal/saga.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trailerops/yardgate/internal/events"
	"github.com/trailerops/yardgate/internal/objectstore"
	"github.com/trailerops/yardgate/internal/saga"
	"github.com/trailerops/yardgate/internal/store"
	"github.com/trailerops/yardgate/internal/yards"
)

// Deps are the shared dependencies handlers close over.
type Deps struct {
	Saga     *saga.Saga
	Registry *yards.Registry
	Trailers store.TrailerStore
	Objects  objectstore.Store
	Events   *events.Producer // nil when Kafka is not configured
	DB       *sql.DB          // nil in memory-backed dev runs
}

// RegisterRoutes wires every route onto r.
func RegisterRoutes(r chi.Router, d Deps) {
	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady(d.DB))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/movements", handleSubmitMovement(d))
		r.Post("/uploads", handleCreateUpload(d.Objects))
		r.Delete("/uploads/*", handleDeleteUpload(d.Objects))
		r.Get("/yards", handleListYards(d.Registry, d.Trailers))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "ts": time.Now().UTC()})
}

func handleReady(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "db not ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// yardStatus is one row of the yard registry read.
type yardStatus struct {
	yards.Yard
	Occupancy int `json:"occupancy"`
}

func handleListYards(registry *yards.Registry, trailers store.TrailerStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := registry.List()
		out := make([]yardStatus, 0, len(list))
		for _, y := range list {
			occ, err := trailers.CountInYard(r.Context(), y.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			out = append(out, yardStatus{Yard: y, Occupancy: occ})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
