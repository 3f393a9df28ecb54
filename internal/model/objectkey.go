package model

import (
	"encoding/json"
	"strings"
)

// TempPrefix is the scratch namespace for freshly uploaded objects. Objects
// under it have no durability guarantee and are finalized (moved under
// FinalPrefix) by the submission workflow, or deleted by the temp cleanup
// endpoint.
const TempPrefix = "tmp/"

// FinalPrefix is the permanent, entity-scoped namespace. Final keys look like
// movements/<movementID>/<folder>/<file>.
const FinalPrefix = "movements/"

// ObjectKey is a tagged object-store reference: either Temporary (scratch
// namespace) or Final (permanent namespace). The tag is fixed once when the
// key enters the system (at JSON decode or via TempKey/FinalKey) so the
// finalizer can switch on the tag instead of re-inspecting prefixes.
type ObjectKey struct {
	raw  string
	temp bool
}

// TempKey builds a Temporary object key.
func TempKey(raw string) ObjectKey { return ObjectKey{raw: raw, temp: true} }

// FinalKey builds a Final object key.
func FinalKey(raw string) ObjectKey { return ObjectKey{raw: raw, temp: false} }

// KeyFor tags raw by namespace. Anything outside TempPrefix is treated as
// already final (idempotent replay payloads carry final keys).
func KeyFor(raw string) ObjectKey {
	return ObjectKey{raw: raw, temp: strings.HasPrefix(raw, TempPrefix)}
}

// String returns the raw object-store key.
func (k ObjectKey) String() string { return k.raw }

// IsTemp reports whether the key lives in the scratch namespace.
func (k ObjectKey) IsTemp() bool { return k.temp }

// IsZero reports whether the key is empty.
func (k ObjectKey) IsZero() bool { return k.raw == "" }

func (k ObjectKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.raw)
}

func (k *ObjectKey) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*k = KeyFor(raw)
	return nil
}
