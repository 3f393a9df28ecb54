package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/trailerops/yardgate/internal/model"
)

// MemMovementStore is an in-memory MovementStore for tests and dev runs.
type MemMovementStore struct {
	mu        sync.Mutex
	byID      map[string]*model.Movement
	byRequest map[string]string // requestID -> movement id

	// FailUpdatePayload, when set, makes UpdatePayload return an error.
	// Tests use it to force a failure mid-saga.
	FailUpdatePayload error

	// MissLookups makes the next N GetByRequestID calls report ErrNotFound,
	// simulating the window where a concurrent retry has not committed yet.
	MissLookups int
}

// NewMemMovementStore constructs an empty in-memory movement store.
func NewMemMovementStore() *MemMovementStore {
	return &MemMovementStore{
		byID:      make(map[string]*model.Movement),
		byRequest: make(map[string]string),
	}
}

func (s *MemMovementStore) Insert(_ context.Context, m *model.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byRequest[m.RequestID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateRequest, m.RequestID)
	}
	cp := *m
	s.byID[m.ID] = &cp
	s.byRequest[m.RequestID] = m.ID
	return nil
}

func (s *MemMovementStore) GetByRequestID(_ context.Context, requestID string) (*model.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MissLookups > 0 {
		s.MissLookups--
		return nil, model.ErrNotFound
	}
	id, ok := s.byRequest[requestID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemMovementStore) UpdatePayload(_ context.Context, id string, p model.MovementPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdatePayload != nil {
		return s.FailUpdatePayload
	}
	m, ok := s.byID[id]
	if !ok {
		return model.ErrNotFound
	}
	m.Payload = p
	return nil
}

func (s *MemMovementStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.byID[id]; ok {
		delete(s.byRequest, m.RequestID)
		delete(s.byID, id)
	}
	return nil
}

// Get returns a movement by id (test helper, not part of MovementStore).
func (s *MemMovementStore) Get(id string) (*model.Movement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	cp := *m
	return &cp, true
}

// MemTrailerStore is an in-memory TrailerStore.
type MemTrailerStore struct {
	mu       sync.Mutex
	trailers map[string]*model.Trailer
	byNumber map[string]string

	// FailUpdateSnapshot, when set, makes UpdateSnapshot return an error.
	FailUpdateSnapshot error
}

// NewMemTrailerStore constructs an empty in-memory trailer store.
func NewMemTrailerStore() *MemTrailerStore {
	return &MemTrailerStore{
		trailers: make(map[string]*model.Trailer),
		byNumber: make(map[string]string),
	}
}

func (s *MemTrailerStore) GetByID(_ context.Context, id string) (*model.Trailer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trailers[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemTrailerStore) Insert(_ context.Context, t *model.Trailer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byNumber[t.Number]; dup {
		return fmt.Errorf("%w: trailer number %s already registered", model.ErrConflict, t.Number)
	}
	cp := *t
	s.trailers[t.ID] = &cp
	s.byNumber[t.Number] = t.ID
	return nil
}

func (s *MemTrailerStore) UpdateSnapshot(_ context.Context, t *model.Trailer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdateSnapshot != nil {
		return s.FailUpdateSnapshot
	}
	cur, ok := s.trailers[t.ID]
	if !ok {
		return model.ErrNotFound
	}
	cur.Status = t.Status
	cur.YardID = t.YardID
	cur.LoadState = t.LoadState
	cur.Condition = t.Condition
	cur.LastMoveAt = t.LastMoveAt
	cur.TotalMovements = t.TotalMovements
	return nil
}

func (s *MemTrailerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trailers[id]; ok {
		delete(s.byNumber, t.Number)
		delete(s.trailers, id)
	}
	return nil
}

func (s *MemTrailerStore) CountInYard(_ context.Context, yardID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.trailers {
		if t.Status == model.StatusIn && t.YardID == yardID {
			n++
		}
	}
	return n, nil
}

// MemStatsStore is an in-memory StatsStore.
type MemStatsStore struct {
	mu    sync.Mutex
	stats map[string]*model.YardDayStat // yardID|dayKey
}

// NewMemStatsStore constructs an empty in-memory stats store.
func NewMemStatsStore() *MemStatsStore {
	return &MemStatsStore{stats: make(map[string]*model.YardDayStat)}
}

func statKey(yardID, dayKey string) string { return yardID + "|" + dayKey }

func (s *MemStatsStore) Apply(_ context.Context, d model.StatsDelta) error {
	if d.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := statKey(d.YardID, d.DayKey)
	st, ok := s.stats[k]
	if !ok {
		st = &model.YardDayStat{YardID: d.YardID, DayKey: d.DayKey}
		s.stats[k] = st
	}
	st.InCount = clamp(st.InCount + d.Inc[model.CounterIn])
	st.OutCount = clamp(st.OutCount + d.Inc[model.CounterOut])
	st.InspectionCount = clamp(st.InspectionCount + d.Inc[model.CounterInspection])
	st.DamageCount = clamp(st.DamageCount + d.Inc[model.CounterDamage])
	return nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (s *MemStatsStore) Get(_ context.Context, yardID, dayKey string) (*model.YardDayStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[statKey(yardID, dayKey)]
	if !ok {
		return &model.YardDayStat{YardID: yardID, DayKey: dayKey}, nil
	}
	cp := *st
	return &cp, nil
}
