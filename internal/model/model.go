// Package model contains the core data types for the yardgate service:
// movements, trailers, per-yard daily stats, file assets, and the error
// taxonomy shared by every other internal package.
package model

import "time"

// MovementType classifies a trailer event.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementInspection MovementType = "INSPECTION"
)

// ValidMovementType reports whether t is one of the three known types.
func ValidMovementType(t MovementType) bool {
	switch t {
	case MovementIn, MovementOut, MovementInspection:
		return true
	}
	return false
}

// TrailerStatus is the cached projection of the latest IN/OUT movement.
// INSPECTION movements never change it.
type TrailerStatus string

const (
	StatusIn  TrailerStatus = "IN"
	StatusOut TrailerStatus = "OUT"
)

// LoadState describes whether the trailer carries freight.
type LoadState string

const (
	LoadLoaded  LoadState = "LOADED"
	LoadEmpty   LoadState = "EMPTY"
	LoadUnknown LoadState = "UNKNOWN"
)

// TrailerType enumerates trailer body styles.
type TrailerType string

const (
	TrailerDryVan    TrailerType = "DRY_VAN"
	TrailerReefer    TrailerType = "REEFER"
	TrailerFlatbed   TrailerType = "FLATBED"
	TrailerStepDeck  TrailerType = "STEP_DECK"
	TrailerTanker    TrailerType = "TANKER"
	TrailerContainer TrailerType = "CONTAINER"
	TrailerOther     TrailerType = "OTHER"
)

// TrailerTypes lists every valid TrailerType.
var TrailerTypes = []TrailerType{
	TrailerDryVan, TrailerReefer, TrailerFlatbed, TrailerStepDeck,
	TrailerTanker, TrailerContainer, TrailerOther,
}

// Actor is the caller identity snapshot stored on each movement. It is
// captured at submission time, not referenced live.
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// SystemActor is the synthetic identity used when auth is disabled
// (dev/test deployments).
func SystemActor() Actor {
	return Actor{ID: "system", DisplayName: "System", Email: ""}
}

// Trailer is the mutable aggregate for one physical trailer and its current
// snapshot. Status/YardID/TotalMovements are driven exclusively by IN/OUT
// movements; INSPECTION only refreshes LoadState.
type Trailer struct {
	ID               string        `json:"id"`
	Number           string        `json:"number"`
	Owner            string        `json:"owner"`
	Make             string        `json:"make"`
	Model            string        `json:"model"`
	Year             int           `json:"year"`
	VIN              string        `json:"vin"`
	Plate            string        `json:"plate"`
	Jurisdiction     string        `json:"jurisdiction"`
	Type             TrailerType   `json:"type"`
	InspectionExpiry time.Time     `json:"inspectionExpiry"`
	Status           TrailerStatus `json:"status"`
	YardID           string        `json:"yardId,omitempty"` // set iff Status == IN
	LoadState        LoadState     `json:"loadState"`
	Condition        string        `json:"condition,omitempty"`
	LastMoveAt       time.Time     `json:"lastMoveAt"`
	TotalMovements   int           `json:"totalMovements"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// Movement is an immutable-once-finalized record of one trailer event. The
// only post-creation write is the payload rewrite from temporary to final
// asset keys; deletion happens only during compensation.
type Movement struct {
	ID        string          `json:"id"`
	RequestID string          `json:"requestId"`
	Type      MovementType    `json:"type"`
	TrailerID string          `json:"trailerId"`
	YardID    string          `json:"yardId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     Actor           `json:"actor"`
	Payload   MovementPayload `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Stat counter names, used as increment-map keys so a delta can be reversed
// exactly.
const (
	CounterIn         = "inCount"
	CounterOut        = "outCount"
	CounterInspection = "inspectionCount"
	CounterDamage     = "damageCount"
)

// YardDayStat is the per-yard, per-calendar-day counters aggregate. DayKey is
// YYYY-MM-DD in the application's fixed time zone.
type YardDayStat struct {
	YardID          string `json:"yardId"`
	DayKey          string `json:"dayKey"`
	InCount         int    `json:"inCount"`
	OutCount        int    `json:"outCount"`
	InspectionCount int    `json:"inspectionCount"`
	DamageCount     int    `json:"damageCount"`
}

// StatsDelta records exactly what the stats aggregator changed, so that a
// later failure can issue the precise inverse decrement.
type StatsDelta struct {
	YardID string         `json:"yardId"`
	DayKey string         `json:"dayKey"`
	Inc    map[string]int `json:"inc"`
}

// Empty reports whether the delta would write nothing.
func (d StatsDelta) Empty() bool {
	for _, n := range d.Inc {
		if n != 0 {
			return false
		}
	}
	return true
}

// Inverse returns the decrement that undoes the delta.
func (d StatsDelta) Inverse() StatsDelta {
	inv := StatsDelta{YardID: d.YardID, DayKey: d.DayKey, Inc: make(map[string]int, len(d.Inc))}
	for k, n := range d.Inc {
		inv.Inc[k] = -n
	}
	return inv
}

// DayKey formats t as YYYY-MM-DD in loc, the application's canonical zone.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
