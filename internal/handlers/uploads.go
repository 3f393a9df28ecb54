package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trailerops/yardgate/internal/model"
	"github.com/trailerops/yardgate/internal/objectstore"
)

// presignTTL is how long a presigned temp upload URL stays valid.
const presignTTL = 15 * time.Minute

// maxDirectUpload caps the server-side multipart upload path (16 MiB).
const maxDirectUpload = 16 << 20

// uploadRequest asks for a presigned PUT into the temp namespace.
type uploadRequest struct {
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
}

// handleCreateUpload is POST /api/v1/uploads. With a JSON body it returns a
// presigned PUT URL for the client to upload against; with a multipart body
// it streams the file into the temp namespace directly. Either way the
// response is the temporary FileAsset to embed in a later submission.
func handleCreateUpload(objects objectstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			handleDirectUpload(objects, w, r)
			return
		}

		var req uploadRequest
		if err := BindJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if req.OriginalName == "" || req.MimeType == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "originalName and mimeType are required"})
			return
		}

		key := objectstore.NewTempKey(req.OriginalName)
		url, err := objects.PresignPut(r.Context(), key, req.MimeType, presignTTL)
		if err != nil {
			writeError(w, fmt.Errorf("presign upload: %w", err))
			return
		}

		writeJSON(w, http.StatusCreated, model.FileAsset{
			Key:          model.TempKey(key),
			URL:          url,
			MimeType:     req.MimeType,
			SizeBytes:    req.SizeBytes,
			OriginalName: req.OriginalName,
		})
	}
}

func handleDirectUpload(objects objectstore.Store, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDirectUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	key := objectstore.NewTempKey(header.Filename)
	if err := objects.Put(r.Context(), key, file, mimeType); err != nil {
		writeError(w, fmt.Errorf("store upload: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, model.FileAsset{
		Key:          model.TempKey(key),
		MimeType:     mimeType,
		SizeBytes:    header.Size,
		OriginalName: header.Filename,
	})
}

// handleDeleteUpload is DELETE /api/v1/uploads/{key}. It only ever deletes
// from the temp namespace: abandoned uploads are the client's to clean up,
// finalized objects are not.
func handleDeleteUpload(objects objectstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if !strings.HasPrefix(key, model.TempPrefix) {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error: fmt.Sprintf("only %s keys can be deleted", model.TempPrefix),
			})
			return
		}
		if err := objects.Delete(r.Context(), key); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
