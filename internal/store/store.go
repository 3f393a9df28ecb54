// Package store contains the persistence layer for movements, trailers, and
// per-yard daily stats. The saga depends on the interfaces here; Postgres
// implementations live in pg_store.go, in-memory ones (for tests) in
// memory.go. No business logic lives in this package.
package store

import (
	"context"
	"errors"

	"github.com/trailerops/yardgate/internal/model"
)

// ErrDuplicateRequest is returned by MovementStore.Insert when another
// submission with the same requestId landed first (unique index race). The
// saga treats it as an idempotent replay and re-reads the winner.
var ErrDuplicateRequest = errors.New("duplicate request id")

// MovementStore persists movement records. Movements are immutable after
// finalization except for the payload rewrite from temporary to final asset
// keys, and are deleted only by compensation.
type MovementStore interface {
	// Insert persists a new movement. Returns ErrDuplicateRequest when the
	// requestId is already taken.
	Insert(ctx context.Context, m *model.Movement) error

	// GetByRequestID looks up a movement by its idempotency key.
	// Returns model.ErrNotFound when absent.
	GetByRequestID(ctx context.Context, requestID string) (*model.Movement, error)

	// UpdatePayload rewrites the stored payload (used once, immediately after
	// asset finalization). Returns model.ErrNotFound when the movement is gone.
	UpdatePayload(ctx context.Context, id string, p model.MovementPayload) error

	// Delete removes a movement (compensation only).
	Delete(ctx context.Context, id string) error
}

// TrailerStore persists trailer aggregates and answers the occupancy query.
type TrailerStore interface {
	// GetByID returns model.ErrNotFound when the trailer does not exist.
	GetByID(ctx context.Context, id string) (*model.Trailer, error)

	// Insert persists a freshly created trailer.
	Insert(ctx context.Context, t *model.Trailer) error

	// UpdateSnapshot overwrites the cached projection fields (status, yard,
	// load state, last move, movement counter).
	UpdateSnapshot(ctx context.Context, t *model.Trailer) error

	// Delete removes a trailer (compensation of a same-request creation only).
	Delete(ctx context.Context, id string) error

	// CountInYard counts trailers currently IN at the given yard.
	CountInYard(ctx context.Context, yardID string) (int, error)
}

// StatsStore upserts the per-yard/per-day counters aggregate. Apply with a
// negative delta is the compensation path.
type StatsStore interface {
	Apply(ctx context.Context, d model.StatsDelta) error

	// Get returns the current counters, or a zero-valued stat when the row
	// does not exist yet.
	Get(ctx context.Context, yardID, dayKey string) (*model.YardDayStat, error)
}
