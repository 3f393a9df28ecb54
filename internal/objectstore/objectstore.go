// Package objectstore abstracts the blob store holding movement photos and
// documents. Temporary uploads live under the tmp/ scratch namespace; the
// submission workflow promotes them to permanent movement-scoped keys.
package objectstore

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/trailerops/yardgate/internal/model"
)

// Folder names for finalized assets, one per payload section.
const (
	FolderDocuments = "documents"
	FolderAngles    = "angles"
	FolderAxles     = "axles"
	FolderDamages   = "damages"
)

// Store is the object-store operation set the workflow needs. There is no
// transaction support; the saga compensates by deleting keys it created.
type Store interface {
	// Move promotes src to dst (copy then delete source). The source must
	// exist; the destination is overwritten if present.
	Move(ctx context.Context, src, dst string) error

	// Delete removes a single object. Deleting a missing object is not an
	// error (compensation must be idempotent).
	Delete(ctx context.Context, key string) error

	// Put writes an object directly (server-side temp upload path).
	Put(ctx context.Context, key string, body io.Reader, contentType string) error

	// PresignPut returns a URL the client can PUT the object bytes to.
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
}

// NewTempKey mints a fresh scratch key for an upload, preserving the original
// file extension so mime sniffing downstream stays honest.
func NewTempKey(originalName string) string {
	return model.TempPrefix + uuid.New().String() + path.Ext(originalName)
}

// FinalKeyFor computes the permanent destination for a temporary object being
// attached to a movement. The layout is movements/<movementID>/<folder>/<file>,
// deterministic for a given (movement, folder, source) triple so a retried
// promotion lands on the same key.
func FinalKeyFor(movementID, folder, srcKey string) string {
	return path.Join(model.FinalPrefix+movementID, folder, path.Base(srcKey))
}
