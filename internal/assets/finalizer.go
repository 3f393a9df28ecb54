// Package assets promotes temporary upload references inside a movement
// payload to permanent, movement-scoped object keys.
package assets

import (
	"context"
	"fmt"

	"github.com/trailerops/yardgate/internal/model"
	"github.com/trailerops/yardgate/internal/objectstore"
)

// Finalizer rewrites every temporary file reference in a payload to a final
// key, moving the underlying objects as it goes.
type Finalizer struct {
	store objectstore.Store
}

// NewFinalizer constructs a Finalizer over the given object store.
func NewFinalizer(store objectstore.Store) *Finalizer {
	return &Finalizer{store: store}
}

// Result is the outcome of a finalization pass. On error, Promoted still
// holds every key created before the fault so the caller can compensate.
type Result struct {
	Payload  model.MovementPayload
	Promoted []string // final keys created by this pass, in traversal order
	TempKeys []string // distinct temporary keys referenced by the input
}

// Finalize walks the payload in a fixed order (documents, angles in
// canonical key order, axles by number (left then right), damages in array
// order) and promotes each temporary reference. A per-request cache maps
// temporary key to finalized asset, so the same upload referenced twice is
// moved exactly once and both references end up on the same final key.
// References that are already final pass through untouched (idempotent
// replay payloads). Every temporary key in the input appears, possibly
// shared, in the output.
func (f *Finalizer) Finalize(ctx context.Context, movementID string, p model.MovementPayload) (*Result, error) {
	res := &Result{Payload: p}
	cache := make(map[string]model.FileAsset)

	promote := func(folder string, a model.FileAsset) (model.FileAsset, error) {
		if !a.Key.IsTemp() {
			return a, nil
		}
		src := a.Key.String()
		if hit, ok := cache[src]; ok {
			return hit, nil
		}
		res.TempKeys = append(res.TempKeys, src)
		dst := objectstore.FinalKeyFor(movementID, folder, src)
		if err := f.store.Move(ctx, src, dst); err != nil {
			return a, fmt.Errorf("promote %s: %w", src, err)
		}
		final := a
		final.Key = model.FinalKey(dst)
		final.URL = "" // temp presigned URL is dead once the object moves
		cache[src] = final
		res.Promoted = append(res.Promoted, dst)
		return final, nil
	}

	var err error
	for i := range res.Payload.Documents {
		res.Payload.Documents[i].Photo, err = promote(objectstore.FolderDocuments, res.Payload.Documents[i].Photo)
		if err != nil {
			return res, err
		}
	}

	angles := make(map[model.AngleKey]model.FileAsset, len(res.Payload.Angles))
	for k, v := range res.Payload.Angles {
		angles[k] = v
	}
	for _, key := range model.AngleKeys {
		a, ok := angles[key]
		if !ok {
			continue
		}
		angles[key], err = promote(objectstore.FolderAngles, a)
		if err != nil {
			res.Payload.Angles = angles
			return res, err
		}
	}
	res.Payload.Angles = angles

	for i := range res.Payload.Axles {
		ax := &res.Payload.Axles[i]
		ax.Left.Photo, err = promote(objectstore.FolderAxles, ax.Left.Photo)
		if err != nil {
			return res, err
		}
		ax.Right.Photo, err = promote(objectstore.FolderAxles, ax.Right.Photo)
		if err != nil {
			return res, err
		}
	}

	for i := range res.Payload.Damages {
		res.Payload.Damages[i].Photo, err = promote(objectstore.FolderDamages, res.Payload.Damages[i].Photo)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}
