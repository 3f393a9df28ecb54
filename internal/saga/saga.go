// Package saga coordinates the movement submission workflow: validation,
// idempotent replay, trailer resolution, the IN/OUT state machine and yard
// capacity check, movement persistence, asset finalization, the trailer
// snapshot update, and the per-yard daily stats upsert. There is no shared
// transaction across the document store and the object store, so the flow is
// an explicit saga: each side effect is recorded as it lands and undone by
// the compensation pass when a later step fails.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trailerops/yardgate/internal/assets"
	"github.com/trailerops/yardgate/internal/model"
	"github.com/trailerops/yardgate/internal/objectstore"
	"github.com/trailerops/yardgate/internal/store"
	"github.com/trailerops/yardgate/internal/validation"
	"github.com/trailerops/yardgate/internal/yards"
)

// Saga wires the submission workflow's collaborators. The clock is injected
// so tests can pin the stat day without a live clock.
type Saga struct {
	movements store.MovementStore
	trailers  store.TrailerStore
	stats     store.StatsStore
	objects   objectstore.Store
	finalizer *assets.Finalizer
	registry  *yards.Registry
	now       func() time.Time
}

// New constructs a Saga. If now is nil, time.Now is used.
func New(
	movements store.MovementStore,
	trailers store.TrailerStore,
	stats store.StatsStore,
	objects objectstore.Store,
	registry *yards.Registry,
	now func() time.Time,
) *Saga {
	if now == nil {
		now = time.Now
	}
	return &Saga{
		movements: movements,
		trailers:  trailers,
		stats:     stats,
		objects:   objects,
		finalizer: assets.NewFinalizer(objects),
		registry:  registry,
		now:       now,
	}
}

// SubmitResult is the success (or replay) outcome of one submission.
type SubmitResult struct {
	Movement *model.Movement `json:"movement"`
	Trailer  *model.Trailer  `json:"trailer"`
	TempKeys []string        `json:"tempKeys,omitempty"` // temp keys referenced by this request
	Replayed bool            `json:"replayed"`
}

// Submit runs the whole workflow for one submission.
//
// Validation, not-found, and conflict errors surface before any persistent
// write and need no cleanup. Once the movement record exists the saga runs to
// completion even if the caller goes away, and any later failure triggers
// compensation before the original error is returned.
func (s *Saga) Submit(ctx context.Context, req *model.SubmissionRequest, actor model.Actor) (*SubmitResult, error) {
	res, err := validation.Validate(req)
	if err != nil {
		return nil, err
	}
	if req.YardID != "" {
		if _, ok := s.registry.Get(req.YardID); !ok {
			return nil, &model.ValidationError{Violations: []model.Violation{
				{Path: "yardId", Message: fmt.Sprintf("unknown yard %q", req.YardID)},
			}}
		}
	}

	// Idempotency guard: a replayed requestId short-circuits everything.
	if prior, err := s.movements.GetByRequestID(ctx, req.RequestID); err == nil {
		return s.replayResult(ctx, prior)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}

	trailer, created, err := s.resolveTrailer(ctx, req, res)
	if err != nil {
		return nil, err
	}

	if err := s.checkTransition(ctx, req.Type, trailer, created, req.YardID); err != nil {
		if created {
			s.compensate(ctx, &compensation{trailerID: trailer.ID})
		}
		return nil, err
	}

	ts := s.now().UTC()
	movement := &model.Movement{
		ID:        uuid.New().String(),
		RequestID: req.RequestID,
		Type:      req.Type,
		TrailerID: trailer.ID,
		YardID:    req.YardID,
		Timestamp: ts,
		Actor:     actor,
		Payload:   res.Payload,
		CreatedAt: ts,
	}
	if err := s.movements.Insert(ctx, movement); err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) {
			// Lost a race against a concurrent retry; the winner's record is
			// the canonical one.
			if created {
				s.compensate(ctx, &compensation{trailerID: trailer.ID})
			}
			if prior, lookupErr := s.movements.GetByRequestID(ctx, req.RequestID); lookupErr == nil {
				return s.replayResult(ctx, prior)
			}
			return nil, err
		}
		if created {
			s.compensate(ctx, &compensation{trailerID: trailer.ID})
		}
		return nil, fmt.Errorf("persist movement: %w", err)
	}

	// The movement record exists: from here on the saga must finish even if
	// the caller abandons the request, and every failure compensates.
	ctx = context.WithoutCancel(ctx)
	comp := &compensation{movementID: movement.ID}
	if created {
		comp.trailerID = trailer.ID
	}

	fin, err := s.finalizer.Finalize(ctx, movement.ID, movement.Payload)
	if fin != nil {
		comp.promoted = fin.Promoted
	}
	if err != nil {
		s.compensate(ctx, comp)
		return nil, fmt.Errorf("finalize assets: %w", err)
	}
	movement.Payload = fin.Payload

	if err := s.movements.UpdatePayload(ctx, movement.ID, movement.Payload); err != nil {
		s.compensate(ctx, comp)
		return nil, fmt.Errorf("patch movement payload: %w", err)
	}

	s.applySnapshot(trailer, movement)
	if err := s.trailers.UpdateSnapshot(ctx, trailer); err != nil {
		s.compensate(ctx, comp)
		return nil, fmt.Errorf("update trailer snapshot: %w", err)
	}

	delta := s.buildDelta(movement)
	if !delta.Empty() {
		if err := s.stats.Apply(ctx, delta); err != nil {
			s.compensate(ctx, comp)
			return nil, fmt.Errorf("apply yard stats: %w", err)
		}
		comp.statsDelta = &delta
	}

	return &SubmitResult{
		Movement: movement,
		Trailer:  trailer,
		TempKeys: fin.TempKeys,
	}, nil
}

// replayResult builds the idempotent-replay response around a prior movement.
func (s *Saga) replayResult(ctx context.Context, prior *model.Movement) (*SubmitResult, error) {
	out := &SubmitResult{Movement: prior, Replayed: true}
	if t, err := s.trailers.GetByID(ctx, prior.TrailerID); err == nil {
		out.Trailer = t
	}
	return out, nil
}

// resolveTrailer loads the referenced trailer or creates one from the inline
// definition. TrailerID takes precedence when both are supplied. A created
// trailer starts OUT with no yard, unknown load state, and a zero movement
// count.
func (s *Saga) resolveTrailer(ctx context.Context, req *model.SubmissionRequest, res *validation.Result) (*model.Trailer, bool, error) {
	if req.TrailerID != "" {
		t, err := s.trailers.GetByID(ctx, req.TrailerID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, false, fmt.Errorf("%w: trailer %s", model.ErrNotFound, req.TrailerID)
			}
			return nil, false, fmt.Errorf("load trailer: %w", err)
		}
		return t, false, nil
	}

	t := res.NewTrailer
	ts := s.now().UTC()
	t.ID = uuid.New().String()
	t.Status = model.StatusOut
	t.YardID = ""
	t.LoadState = model.LoadUnknown
	t.TotalMovements = 0
	t.LastMoveAt = ts
	t.CreatedAt = ts
	if err := s.trailers.Insert(ctx, t); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("create trailer: %w", err)
	}
	return t, true, nil
}

// checkTransition enforces the IN/OUT state machine and the yard capacity
// ceiling. A trailer created by this same request has no prior state to
// conflict with, but is still subject to the capacity check. The occupancy
// count is read-then-compared, so under concurrency it is best-effort
// admission control, not a hard guarantee.
func (s *Saga) checkTransition(ctx context.Context, mt model.MovementType, t *model.Trailer, justCreated bool, yardID string) error {
	switch mt {
	case model.MovementIn:
		if !justCreated && t.Status == model.StatusIn {
			return fmt.Errorf("%w: trailer %s is already IN at yard %s", model.ErrConflict, t.Number, t.YardID)
		}
		yard, _ := s.registry.Get(yardID)
		occupancy, err := s.trailers.CountInYard(ctx, yardID)
		if err != nil {
			return fmt.Errorf("count yard occupancy: %w", err)
		}
		if occupancy >= yard.Capacity {
			return fmt.Errorf("%w: yard %s is at capacity (%d/%d)", model.ErrConflict, yardID, occupancy, yard.Capacity)
		}
	case model.MovementOut:
		if !justCreated && t.Status == model.StatusOut {
			return fmt.Errorf("%w: trailer %s is already OUT", model.ErrConflict, t.Number)
		}
	case model.MovementInspection:
		// Transition-free event type; always permitted.
	}
	return nil
}

// applySnapshot folds the movement into the trailer's cached projection.
// IN/OUT drive status, yard, and the movement counter; INSPECTION only
// refreshes the load state.
func (s *Saga) applySnapshot(t *model.Trailer, m *model.Movement) {
	loadState := model.LoadEmpty
	if m.Payload.Trip.Loaded {
		loadState = model.LoadLoaded
	}
	switch m.Type {
	case model.MovementIn:
		t.Status = model.StatusIn
		t.YardID = m.YardID
		t.TotalMovements++
		t.LastMoveAt = m.Timestamp
	case model.MovementOut:
		t.Status = model.StatusOut
		t.YardID = ""
		t.TotalMovements++
		t.LastMoveAt = m.Timestamp
	case model.MovementInspection:
		// status, yard, and counter untouched
	}
	t.LoadState = loadState
}

// buildDelta computes the stats increment for the movement's yard and
// calendar day. Without a yard there is nowhere to count, so the delta is
// empty and no aggregate write happens.
func (s *Saga) buildDelta(m *model.Movement) model.StatsDelta {
	if m.YardID == "" {
		return model.StatsDelta{}
	}
	inc := make(map[string]int, 2)
	switch m.Type {
	case model.MovementIn:
		inc[model.CounterIn] = 1
	case model.MovementOut:
		inc[model.CounterOut] = 1
	case model.MovementInspection:
		inc[model.CounterInspection] = 1
	}
	if m.Payload.HasNewDamage() {
		inc[model.CounterDamage] = 1
	}
	return model.StatsDelta{
		YardID: m.YardID,
		DayKey: model.DayKey(m.Timestamp, s.registry.Location()),
		Inc:    inc,
	}
}
