package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/trailerops/yardgate/internal/model"
)

// uniqueViolation is the Postgres error code for unique-constraint failures.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ok := asPQError(err, &pqErr); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func asPQError(err error, target **pq.Error) bool {
	for err != nil {
		if pe, ok := err.(*pq.Error); ok {
			*target = pe
			return true
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// PGMovementStore is the Postgres implementation of MovementStore.
type PGMovementStore struct {
	db *sql.DB
}

// NewPGMovementStore constructs a Postgres-backed movement store.
func NewPGMovementStore(db *sql.DB) *PGMovementStore {
	return &PGMovementStore{db: db}
}

func (s *PGMovementStore) Insert(ctx context.Context, m *model.Movement) error {
	actorJSON, err := json.Marshal(m.Actor)
	if err != nil {
		return fmt.Errorf("marshal actor: %w", err)
	}
	payloadJSON, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	q := `
		INSERT INTO movements (id, request_id, type, trailer_id, yard_id, ts, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, q,
		m.ID, m.RequestID, string(m.Type), m.TrailerID, m.YardID,
		m.Timestamp, actorJSON, payloadJSON, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateRequest, m.RequestID)
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (s *PGMovementStore) GetByRequestID(ctx context.Context, requestID string) (*model.Movement, error) {
	q := `
		SELECT id, request_id, type, trailer_id, COALESCE(yard_id, ''), ts, actor, payload, created_at
		FROM movements WHERE request_id = $1
	`
	return s.scanMovement(s.db.QueryRowContext(ctx, q, requestID))
}

func (s *PGMovementStore) scanMovement(row *sql.Row) (*model.Movement, error) {
	var m model.Movement
	var typ string
	var actorJSON, payloadJSON []byte
	err := row.Scan(&m.ID, &m.RequestID, &typ, &m.TrailerID, &m.YardID,
		&m.Timestamp, &actorJSON, &payloadJSON, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan movement: %w", err)
	}
	m.Type = model.MovementType(typ)
	if err := json.Unmarshal(actorJSON, &m.Actor); err != nil {
		return nil, fmt.Errorf("unmarshal actor: %w", err)
	}
	if err := json.Unmarshal(payloadJSON, &m.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &m, nil
}

func (s *PGMovementStore) UpdatePayload(ctx context.Context, id string, p model.MovementPayload) error {
	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE movements SET payload = $2 WHERE id = $1`, id, payloadJSON)
	if err != nil {
		return fmt.Errorf("update movement payload: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *PGMovementStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	return nil
}

// PGTrailerStore is the Postgres implementation of TrailerStore.
type PGTrailerStore struct {
	db *sql.DB
}

// NewPGTrailerStore constructs a Postgres-backed trailer store.
func NewPGTrailerStore(db *sql.DB) *PGTrailerStore {
	return &PGTrailerStore{db: db}
}

const trailerColumns = `
	id, number, owner, make, model, year, vin, plate, jurisdiction, type,
	inspection_expiry, status, COALESCE(yard_id, ''), load_state,
	COALESCE(condition, ''), last_move_at, total_movements, created_at`

func (s *PGTrailerStore) GetByID(ctx context.Context, id string) (*model.Trailer, error) {
	q := `SELECT ` + trailerColumns + ` FROM trailers WHERE id = $1`
	return scanTrailer(s.db.QueryRowContext(ctx, q, id))
}

func scanTrailer(row *sql.Row) (*model.Trailer, error) {
	var t model.Trailer
	var typ, status, loadState string
	err := row.Scan(&t.ID, &t.Number, &t.Owner, &t.Make, &t.Model, &t.Year,
		&t.VIN, &t.Plate, &t.Jurisdiction, &typ, &t.InspectionExpiry,
		&status, &t.YardID, &loadState, &t.Condition, &t.LastMoveAt,
		&t.TotalMovements, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trailer: %w", err)
	}
	t.Type = model.TrailerType(typ)
	t.Status = model.TrailerStatus(status)
	t.LoadState = model.LoadState(loadState)
	return &t, nil
}

func (s *PGTrailerStore) Insert(ctx context.Context, t *model.Trailer) error {
	q := `
		INSERT INTO trailers (id, number, owner, make, model, year, vin, plate,
			jurisdiction, type, inspection_expiry, status, yard_id, load_state,
			condition, last_move_at, total_movements, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			NULLIF($13, ''), $14, NULLIF($15, ''), $16, $17, $18)
	`
	_, err := s.db.ExecContext(ctx, q,
		t.ID, t.Number, t.Owner, t.Make, t.Model, t.Year, t.VIN, t.Plate,
		t.Jurisdiction, string(t.Type), t.InspectionExpiry, string(t.Status),
		t.YardID, string(t.LoadState), t.Condition, t.LastMoveAt,
		t.TotalMovements, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: trailer number %s already registered", model.ErrConflict, t.Number)
		}
		return fmt.Errorf("insert trailer: %w", err)
	}
	return nil
}

func (s *PGTrailerStore) UpdateSnapshot(ctx context.Context, t *model.Trailer) error {
	q := `
		UPDATE trailers
		SET status = $2, yard_id = NULLIF($3, ''), load_state = $4,
			condition = NULLIF($5, ''), last_move_at = $6, total_movements = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, t.ID, string(t.Status), t.YardID,
		string(t.LoadState), t.Condition, t.LastMoveAt, t.TotalMovements)
	if err != nil {
		return fmt.Errorf("update trailer snapshot: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *PGTrailerStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM trailers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trailer: %w", err)
	}
	return nil
}

func (s *PGTrailerStore) CountInYard(ctx context.Context, yardID string) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM trailers WHERE status = 'IN' AND yard_id = $1`
	if err := s.db.QueryRowContext(ctx, q, yardID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count yard occupancy: %w", err)
	}
	return n, nil
}

// PGStatsStore is the Postgres implementation of StatsStore.
type PGStatsStore struct {
	db *sql.DB
}

// NewPGStatsStore constructs a Postgres-backed stats store.
func NewPGStatsStore(db *sql.DB) *PGStatsStore {
	return &PGStatsStore{db: db}
}

// Apply upserts the (yard, day) row and adds the delta's increments. Negative
// increments (compensation) take the same path; counters are clamped at zero
// so a reversal can never drive them negative.
func (s *PGStatsStore) Apply(ctx context.Context, d model.StatsDelta) error {
	if d.Empty() {
		return nil
	}
	q := `
		INSERT INTO yard_day_stats (yard_id, day_key, in_count, out_count, inspection_count, damage_count)
		VALUES ($1, $2, GREATEST($3, 0), GREATEST($4, 0), GREATEST($5, 0), GREATEST($6, 0))
		ON CONFLICT (yard_id, day_key) DO UPDATE SET
			in_count         = GREATEST(yard_day_stats.in_count + $3, 0),
			out_count        = GREATEST(yard_day_stats.out_count + $4, 0),
			inspection_count = GREATEST(yard_day_stats.inspection_count + $5, 0),
			damage_count     = GREATEST(yard_day_stats.damage_count + $6, 0)
	`
	_, err := s.db.ExecContext(ctx, q, d.YardID, d.DayKey,
		d.Inc[model.CounterIn], d.Inc[model.CounterOut],
		d.Inc[model.CounterInspection], d.Inc[model.CounterDamage])
	if err != nil {
		return fmt.Errorf("apply stats delta: %w", err)
	}
	return nil
}

func (s *PGStatsStore) Get(ctx context.Context, yardID, dayKey string) (*model.YardDayStat, error) {
	q := `
		SELECT in_count, out_count, inspection_count, damage_count
		FROM yard_day_stats WHERE yard_id = $1 AND day_key = $2
	`
	st := &model.YardDayStat{YardID: yardID, DayKey: dayKey}
	err := s.db.QueryRowContext(ctx, q, yardID, dayKey).
		Scan(&st.InCount, &st.OutCount, &st.InspectionCount, &st.DamageCount)
	if err == sql.ErrNoRows {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get yard day stat: %w", err)
	}
	return st, nil
}
