package files

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/filedrop/service/internal/response"
	"github.com/filedrop/service/internal/storage"
)

// Handler holds HTTP handlers for the file API.
type Handler struct {
	svc *Service
}

// NewHandler creates a new file Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Upload accepts a multipart form with a "file" part, stores it, and
// returns the resulting object.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// Slightly above the storage ceiling so oversize uploads reach the
	// validation layer and produce a proper error instead of a cut stream.
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file provided")
		return
	}
	defer file.Close()

	obj, err := h.svc.Upload(r.Context(), file, header.Filename, header.Size)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, obj)
}

// List returns all stored files, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	objects, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, objects)
}

// Delete removes a file. Deleting an already-deleted file succeeds.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.svc.Delete(r.Context(), key); err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, map[string]string{"deleted": key})
}

// Download redirects the browser to a fresh short-lived URL for the file.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	url, err := h.svc.DownloadURL(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Share returns a link to the file valid for the share window.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	link, err := h.svc.Share(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, link)
}

// writeError maps storage errors onto HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		response.NotFound(w, "file not found")
	case errors.Is(err, storage.ErrExpiredOrInvalid):
		response.Forbidden(w, "link expired or invalid")
	default:
		log.Printf("files: %v", err)
		response.InternalError(w)
	}
}

// LocalHandler serves local-mode download and share links. It is mounted
// only when the selector fell back to the local filesystem backend; in
// remote mode the provider's edge serves presigned URLs instead.
type LocalHandler struct {
	local *storage.Local
}

// NewLocalHandler creates a handler over the local backend.
func NewLocalHandler(local *storage.Local) *LocalHandler {
	return &LocalHandler{local: local}
}

// Serve verifies the signed token in the URL and streams the granted file.
// Invalid or expired tokens get a 403 that does not say which of the two
// it was, nor whether the target exists.
func (h *LocalHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	rc, obj, err := h.local.Resolve(token)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrExpiredOrInvalid):
			response.Forbidden(w, "link expired or invalid")
		case errors.Is(err, storage.ErrNotFound):
			response.NotFound(w, "file not found")
		default:
			log.Printf("files: resolve link: %v", err)
			response.InternalError(w)
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", obj.OriginalName))

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already sent; nothing to do but note it.
		log.Printf("files: stream %q: %v", obj.Key, err)
	}
}
