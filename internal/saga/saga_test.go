package saga

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailerops/yardgate/internal/model"
	"github.com/trailerops/yardgate/internal/objectstore"
	"github.com/trailerops/yardgate/internal/store"
	"github.com/trailerops/yardgate/internal/yards"
)

var testClock = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

const testDayKey = "2026-03-14"

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }
func intp(n int) *int       { return &n }
func fp(f float64) *float64 { return &f }

type env struct {
	movements *store.MemMovementStore
	trailers  *store.MemTrailerStore
	stats     *store.MemStatsStore
	objects   *objectstore.MemStore
	saga      *Saga
}

func newEnv(t *testing.T, capacity int) *env {
	t.Helper()
	registry, err := yards.NewRegistry(time.UTC, []yards.Yard{
		{ID: "Y1", Name: "North Yard", Capacity: capacity},
		{ID: "Y2", Name: "South Yard", Capacity: 50},
	})
	require.NoError(t, err)

	e := &env{
		movements: store.NewMemMovementStore(),
		trailers:  store.NewMemTrailerStore(),
		stats:     store.NewMemStatsStore(),
		objects:   objectstore.NewMemStore(),
	}
	e.saga = New(e.movements, e.trailers, e.stats, e.objects, registry, func() time.Time { return testClock })
	return e
}

func (e *env) seedTrailer(id, number string, status model.TrailerStatus, yardID string) *model.Trailer {
	t := &model.Trailer{
		ID:           id,
		Number:       number,
		Owner:        "Acme Leasing",
		Make:         "Utility",
		Model:        "3000R",
		Year:         2020,
		VIN:          "1UYVS2530LU" + number,
		Plate:        "PLT " + number,
		Jurisdiction: "AB",
		Type:         model.TrailerDryVan,
		Status:       status,
		YardID:       yardID,
		LoadState:    model.LoadUnknown,
	}
	if err := e.trailers.Insert(context.Background(), t); err != nil {
		panic(err)
	}
	return t
}

// photo seeds a temp upload and returns a reference to it. Keys are prefixed
// per request so concurrent submissions in a test never collide.
func (e *env) photo(prefix, name string) *model.FileAsset {
	key := "tmp/" + prefix + "-" + name
	e.objects.Seed(key, []byte("bytes"))
	return &model.FileAsset{
		Key:      model.TempKey(key),
		URL:      "memory://" + key,
		MimeType: "image/jpeg",
	}
}

func (e *env) newRequest(requestID string, typ model.MovementType, yardID, trailerID string) *model.SubmissionRequest {
	side := func(name string) *model.AxleSideInput {
		return &model.AxleSideInput{
			Photo: e.photo(requestID, name),
			Outer: &model.TireSpecInput{Brand: strp("Michelin"), PSI: fp(105), Condition: strp("ORI")},
		}
	}
	angles := make(map[string]*model.FileAsset, len(model.AngleKeys))
	for _, k := range model.AngleKeys {
		angles[string(k)] = e.photo(requestID, strings.ToLower(string(k))+".jpg")
	}
	damageChecklist := make(map[string]*bool, len(model.DamageChecklistKeys))
	for _, k := range model.DamageChecklistKeys {
		damageChecklist[k] = boolp(false)
	}
	compliance := make(map[string]*bool, len(model.ComplianceChecklistKeys))
	for _, k := range model.ComplianceChecklistKeys {
		compliance[k] = boolp(true)
	}
	return &model.SubmissionRequest{
		Type:      typ,
		RequestID: requestID,
		YardID:    yardID,
		TrailerID: trailerID,
		Carrier: &model.CarrierSection{
			CarrierName: strp("Acme Transport"),
			DriverName:  strp("J. Doe"),
		},
		Trip: &model.TripSection{
			InspectionExpiry: strp("2027-01-31"),
			Customer:         strp("Northside Foods"),
			Destination:      strp("Calgary"),
			OrderNumber:      strp("ORD-4411"),
			Loaded:           boolp(true),
			Bound:            strp("SOUTH_BOUND"),
		},
		Documents: []model.DocumentInput{
			{Description: strp("Bill of lading"), Photo: e.photo(requestID, "bol.jpg")},
		},
		Angles: angles,
		Axles: []model.AxleInput{
			{Number: intp(1), Type: strp("SINGLE"), Left: side("ax1l.jpg"), Right: side("ax1r.jpg")},
			{Number: intp(2), Type: strp("SINGLE"), Left: side("ax2l.jpg"), Right: side("ax2r.jpg")},
		},
		DamageChecklist:     damageChecklist,
		ComplianceChecklist: compliance,
	}
}

func inlineTrailer(number string) *model.TrailerInput {
	return &model.TrailerInput{
		Number:           strp(number),
		Owner:            strp("Acme Leasing"),
		Make:             strp("Utility"),
		Model:            strp("3000R"),
		Year:             intp(2021),
		VIN:              strp("1UYVS25305U" + number),
		Plate:            strp("NEW " + number),
		Jurisdiction:     strp("AB"),
		Type:             strp("DRY_VAN"),
		InspectionExpiry: strp("2026-12-01"),
	}
}

func (e *env) stat(t *testing.T, yardID string) *model.YardDayStat {
	t.Helper()
	st, err := e.stats.Get(context.Background(), yardID, testDayKey)
	require.NoError(t, err)
	return st
}

func (e *env) hasFinalObjects() bool {
	for _, k := range e.objects.Keys() {
		if strings.HasPrefix(k, model.FinalPrefix) {
			return true
		}
	}
	return false
}

func TestSubmitInHappyPath(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")
	ctx := context.Background()

	res, err := e.saga.Submit(ctx, e.newRequest("req-1", model.MovementIn, "Y1", "tr-1"), model.SystemActor())
	require.NoError(t, err)
	require.False(t, res.Replayed)
	require.NotNil(t, res.Movement)

	assert.Equal(t, testClock, res.Movement.Timestamp)
	assert.Equal(t, "tr-1", res.Movement.TrailerID)
	assert.Equal(t, "system", res.Movement.Actor.ID)
	assert.Len(t, res.TempKeys, 13) // 1 document + 8 angles + 4 axle sides

	// Payload persisted with final keys only.
	stored, ok := e.movements.Get(res.Movement.ID)
	require.True(t, ok)
	for _, d := range stored.Payload.Documents {
		assert.False(t, d.Photo.Key.IsTemp())
		assert.Empty(t, d.Photo.URL)
	}
	for _, a := range stored.Payload.Angles {
		assert.False(t, a.Key.IsTemp())
	}

	// No temp objects survive a successful submission.
	for _, k := range e.objects.Keys() {
		assert.False(t, strings.HasPrefix(k, model.TempPrefix), "leftover temp object %s", k)
	}

	trailer, err := e.trailers.GetByID(ctx, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusIn, trailer.Status)
	assert.Equal(t, "Y1", trailer.YardID)
	assert.Equal(t, model.LoadLoaded, trailer.LoadState)
	assert.Equal(t, 1, trailer.TotalMovements)
	assert.Equal(t, testClock, trailer.LastMoveAt)

	st := e.stat(t, "Y1")
	assert.Equal(t, 1, st.InCount)
	assert.Zero(t, st.OutCount)
	assert.Zero(t, st.DamageCount)
}

func TestSubmitIdempotentReplay(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")
	ctx := context.Background()

	first, err := e.saga.Submit(ctx, e.newRequest("req-dup", model.MovementIn, "Y1", "tr-1"), model.SystemActor())
	require.NoError(t, err)
	movesAfterFirst := e.objects.MoveCalls

	second, err := e.saga.Submit(ctx, e.newRequest("req-dup", model.MovementIn, "Y1", "tr-1"), model.SystemActor())
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Movement.ID, second.Movement.ID)
	require.NotNil(t, second.Trailer)
	assert.Equal(t, "tr-1", second.Trailer.ID)

	// The replay performs no writes: no new moves, no double counting.
	assert.Equal(t, movesAfterFirst, e.objects.MoveCalls)
	assert.Equal(t, 1, e.stat(t, "Y1").InCount)

	trailer, err := e.trailers.GetByID(ctx, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, trailer.TotalMovements)
}

func TestSubmitCreatesTrailerInline(t *testing.T) {
	e := newEnv(t, 10)
	ctx := context.Background()

	req := e.newRequest("req-new", model.MovementIn, "Y1", "")
	req.Trailer = inlineTrailer("TR-9000")

	res, err := e.saga.Submit(ctx, req, model.SystemActor())
	require.NoError(t, err)
	require.NotNil(t, res.Trailer)

	assert.NotEmpty(t, res.Trailer.ID)
	assert.Equal(t, "TR-9000", res.Trailer.Number)
	assert.Equal(t, model.StatusIn, res.Trailer.Status)
	assert.Equal(t, "Y1", res.Trailer.YardID)
	assert.Equal(t, 1, res.Trailer.TotalMovements)

	stored, err := e.trailers.GetByID(ctx, res.Trailer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusIn, stored.Status)
}

func TestSubmitUnknownYard(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")

	_, err := e.saga.Submit(context.Background(), e.newRequest("req-1", model.MovementIn, "NOWHERE", "tr-1"), model.SystemActor())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "unknown yard")

	_, lookupErr := e.movements.GetByRequestID(context.Background(), "req-1")
	assert.ErrorIs(t, lookupErr, model.ErrNotFound)
}

func TestSubmitTrailerNotFound(t *testing.T) {
	e := newEnv(t, 10)

	_, err := e.saga.Submit(context.Background(), e.newRequest("req-1", model.MovementIn, "Y1", "tr-missing"), model.SystemActor())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSubmitStateMachine(t *testing.T) {
	t.Run("IN while already IN conflicts", func(t *testing.T) {
		e := newEnv(t, 10)
		e.seedTrailer("tr-1", "TR-1001", model.StatusIn, "Y2")

		_, err := e.saga.Submit(context.Background(), e.newRequest("req-1", model.MovementIn, "Y1", "tr-1"), model.SystemActor())
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConflict)
		assert.Zero(t, e.stat(t, "Y1").InCount)
	})

	t.Run("OUT while already OUT conflicts", func(t *testing.T) {
		e := newEnv(t, 10)
		e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")

		_, err := e.saga.Submit(context.Background(), e.newRequest("req-1", model.MovementOut, "Y1", "tr-1"), model.SystemActor())
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("OUT clears the yard", func(t *testing.T) {
		e := newEnv(t, 10)
		e.seedTrailer("tr-1", "TR-1001", model.StatusIn, "Y1")
		ctx := context.Background()

		_, err := e.saga.Submit(ctx, e.newRequest("req-1", model.MovementOut, "Y1", "tr-1"), model.SystemActor())
		require.NoError(t, err)

		trailer, err := e.trailers.GetByID(ctx, "tr-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusOut, trailer.Status)
		assert.Empty(t, trailer.YardID)
		assert.Equal(t, 1, e.stat(t, "Y1").OutCount)
	})
}

func TestSubmitInspectionLeavesStatusAlone(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusIn, "Y1")
	ctx := context.Background()

	req := e.newRequest("req-1", model.MovementInspection, "Y1", "tr-1")
	req.Trip.Loaded = boolp(false)

	_, err := e.saga.Submit(ctx, req, model.SystemActor())
	require.NoError(t, err)

	trailer, err := e.trailers.GetByID(ctx, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusIn, trailer.Status)
	assert.Equal(t, "Y1", trailer.YardID)
	assert.Zero(t, trailer.TotalMovements)
	assert.Equal(t, model.LoadEmpty, trailer.LoadState)

	st := e.stat(t, "Y1")
	assert.Equal(t, 1, st.InspectionCount)
	assert.Zero(t, st.InCount)
}

func TestSubmitInspectionWithoutYardSkipsStats(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")

	res, err := e.saga.Submit(context.Background(), e.newRequest("req-1", model.MovementInspection, "", "tr-1"), model.SystemActor())
	require.NoError(t, err)
	assert.False(t, res.Replayed)

	for _, yard := range []string{"Y1", "Y2"} {
		st := e.stat(t, yard)
		assert.Zero(t, st.InspectionCount)
	}
}

func TestSubmitCountsNewDamage(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")

	req := e.newRequest("req-1", model.MovementIn, "Y1", "tr-1")
	req.Damages = []model.DamageInput{{
		Location:  strp("LEFT_SIDE"),
		Type:      strp("DENT"),
		Photo:     e.photo("req-1", "dent.jpg"),
		NewDamage: boolp(true),
	}}

	_, err := e.saga.Submit(context.Background(), req, model.SystemActor())
	require.NoError(t, err)

	st := e.stat(t, "Y1")
	assert.Equal(t, 1, st.InCount)
	assert.Equal(t, 1, st.DamageCount)
}

func TestSubmitYardCapacity(t *testing.T) {
	e := newEnv(t, 2)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")
	e.seedTrailer("tr-2", "TR-1002", model.StatusOut, "")
	e.seedTrailer("tr-3", "TR-1003", model.StatusOut, "")
	ctx := context.Background()

	_, err := e.saga.Submit(ctx, e.newRequest("req-1", model.MovementIn, "Y1", "tr-1"), model.SystemActor())
	require.NoError(t, err)
	_, err = e.saga.Submit(ctx, e.newRequest("req-2", model.MovementIn, "Y1", "tr-2"), model.SystemActor())
	require.NoError(t, err)

	// Yard full.
	_, err = e.saga.Submit(ctx, e.newRequest("req-3", model.MovementIn, "Y1", "tr-3"), model.SystemActor())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Contains(t, err.Error(), "capacity")
	assert.Equal(t, 2, e.stat(t, "Y1").InCount)

	// An OUT frees a slot and the third trailer is admitted.
	_, err = e.saga.Submit(ctx, e.newRequest("req-4", model.MovementOut, "Y1", "tr-1"), model.SystemActor())
	require.NoError(t, err)
	_, err = e.saga.Submit(ctx, e.newRequest("req-5", model.MovementIn, "Y1", "tr-3"), model.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, 3, e.stat(t, "Y1").InCount)
}

func TestSubmitCapacityRejectionRemovesCreatedTrailer(t *testing.T) {
	e := newEnv(t, 1)
	e.seedTrailer("tr-1", "TR-1001", model.StatusIn, "Y1")
	ctx := context.Background()

	req := e.newRequest("req-1", model.MovementIn, "Y1", "")
	req.Trailer = inlineTrailer("TR-9000")

	_, err := e.saga.Submit(ctx, req, model.SystemActor())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)

	// The trailer created for this request was compensated away, so the same
	// number registers cleanly once capacity frees up.
	_, err = e.saga.Submit(ctx, e.newRequest("req-2", model.MovementOut, "Y1", "tr-1"), model.SystemActor())
	require.NoError(t, err)

	retry := e.newRequest("req-3", model.MovementIn, "Y1", "")
	retry.Trailer = inlineTrailer("TR-9000")
	res, err := e.saga.Submit(ctx, retry, model.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, "TR-9000", res.Trailer.Number)
}

func TestSubmitCompensatesOnFinalizeFailure(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")
	e.objects.FailMoveAfter = 3
	ctx := context.Background()

	_, err := e.saga.Submit(ctx, e.newRequest("req-1", model.MovementIn, "Y1", "tr-1"), model.SystemActor())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finalize assets")

	// Movement gone, trailer untouched, stats untouched, no permanent objects.
	_, lookupErr := e.movements.GetByRequestID(ctx, "req-1")
	assert.ErrorIs(t, lookupErr, model.ErrNotFound)

	trailer, getErr := e.trailers.GetByID(ctx, "tr-1")
	require.NoError(t, getErr)
	assert.Equal(t, model.StatusOut, trailer.Status)
	assert.Zero(t, trailer.TotalMovements)

	assert.Zero(t, e.stat(t, "Y1").InCount)
	assert.False(t, e.hasFinalObjects(), "promoted objects must be deleted")
}

func TestSubmitCompensatesOnPayloadPatchFailure(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")
	e.movements.FailUpdatePayload = assert.AnError
	ctx := context.Background()

	req := e.newRequest("req-1", model.MovementIn, "Y1", "")
	req.Trailer = inlineTrailer("TR-9000")
	req.TrailerID = ""

	_, err := e.saga.Submit(ctx, req, model.SystemActor())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patch movement payload")

	_, lookupErr := e.movements.GetByRequestID(ctx, "req-1")
	assert.ErrorIs(t, lookupErr, model.ErrNotFound)

	// Created trailer rolled back: the number is free again.
	require.NoError(t, e.trailers.Insert(ctx, &model.Trailer{ID: "probe", Number: "TR-9000"}))

	assert.Zero(t, e.stat(t, "Y1").InCount)
	assert.False(t, e.hasFinalObjects())
}

func TestSubmitCompensatesOnSnapshotFailure(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")
	e.trailers.FailUpdateSnapshot = assert.AnError
	ctx := context.Background()

	_, err := e.saga.Submit(ctx, e.newRequest("req-1", model.MovementIn, "Y1", "tr-1"), model.SystemActor())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update trailer snapshot")

	_, lookupErr := e.movements.GetByRequestID(ctx, "req-1")
	assert.ErrorIs(t, lookupErr, model.ErrNotFound)
	assert.Zero(t, e.stat(t, "Y1").InCount)
	assert.False(t, e.hasFinalObjects())
}

func TestSubmitDuplicateInsertRaceReplays(t *testing.T) {
	e := newEnv(t, 10)
	e.seedTrailer("tr-1", "TR-1001", model.StatusOut, "")
	ctx := context.Background()

	// A concurrent retry lands the same requestId between our idempotency
	// lookup and our insert. The miss makes the lookup report not-found, the
	// pre-inserted winner makes the insert hit the unique index.
	winner := &model.Movement{
		ID:        "mv-winner",
		RequestID: "req-race",
		Type:      model.MovementIn,
		TrailerID: "tr-1",
		YardID:    "Y1",
		Timestamp: testClock,
	}
	require.NoError(t, e.movements.Insert(ctx, winner))
	e.movements.MissLookups = 1

	req := e.newRequest("req-race", model.MovementIn, "Y1", "")
	req.Trailer = inlineTrailer("TR-9000")

	res, err := e.saga.Submit(ctx, req, model.SystemActor())
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, "mv-winner", res.Movement.ID)

	// The loser's freshly created trailer was compensated away.
	require.NoError(t, e.trailers.Insert(ctx, &model.Trailer{ID: "probe", Number: "TR-9000"}))
}
