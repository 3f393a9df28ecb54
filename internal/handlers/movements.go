package handlers

import (
	"log"
	"net/http"

	"github.com/trailerops/yardgate/internal/auth"
	"github.com/trailerops/yardgate/internal/model"
)

// handleSubmitMovement is POST /api/v1/movements: the submission workflow.
//
// Success returns 201 with the finalized movement, the updated trailer
// snapshot, and the temp keys the request referenced; an idempotent replay
// returns 200 with the prior movement and replayed=true.
func handleSubmitMovement(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.SubmissionRequest
		if err := BindJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}

		actor := auth.ActorFromContext(r.Context())
		res, err := d.Saga.Submit(r.Context(), &req, actor)
		if err != nil {
			writeError(w, err)
			return
		}

		if d.Events != nil && !res.Replayed {
			if err := d.Events.EmitMovement(r.Context(), res.Movement); err != nil {
				log.Printf("emit movement event %s: %v", res.Movement.ID, err)
			}
		}

		code := http.StatusCreated
		if res.Replayed {
			code = http.StatusOK
		}
		writeJSON(w, code, res)
	}
}
