package files_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/filedrop/service/internal/files"
	"github.com/filedrop/service/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	local, err := storage.NewLocal(t.TempDir(), "http://localhost:8080", storage.NewSigner("test-secret"), 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	handler := files.NewHandler(files.NewService(local))
	localHandler := files.NewLocalHandler(local)

	r := chi.NewRouter()
	r.Route("/api/v1/files", func(r chi.Router) {
		r.Post("/", handler.Upload)
		r.Get("/", handler.List)
		r.Delete("/{key}", handler.Delete)
		r.Get("/{key}/download", handler.Download)
		r.Get("/{key}/share", handler.Share)
	})
	r.Get("/local/{token}", localHandler.Serve)

	return r
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func do(r *chi.Mux, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestUploadDownloadDeleteFlow(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	content := []byte("0123456789")

	// Upload
	rec := do(r, uploadRequest(t, "notes.txt", content))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var obj storage.StoredObject
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, &obj))
	require.Equal(t, int64(10), obj.Size)
	require.Equal(t, "notes.txt", obj.OriginalName)
	require.NotEmpty(t, obj.Key)

	// List shows it exactly once, with matching size.
	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []storage.StoredObject
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, obj.Key, listed[0].Key)
	require.Equal(t, int64(10), listed[0].Size)

	// Download redirects to a fresh signed link served by /local.
	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+obj.Key+"/download", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Contains(t, loc.Path, "/local/")

	rec = do(r, httptest.NewRequest(http.MethodGet, loc.Path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, content, rec.Body.Bytes())
	require.Contains(t, rec.Header().Get("Content-Disposition"), "notes.txt")
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	// Delete twice: both succeed.
	rec = do(r, httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+obj.Key, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(r, httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+obj.Key, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Store is empty again.
	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Empty(t, listed)
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec := do(r, uploadRequest(t, "virus.exe", []byte("mz")))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.Contains(t, env.Error, "not allowed")

	// The failed upload left nothing behind.
	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	var listed []storage.StoredObject
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Empty(t, listed)
}

func TestUploadWithoutFilePart(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := do(r, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateFilenamesGetDistinctKeys(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec := do(r, uploadRequest(t, "report.pdf", []byte("one")))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(r, uploadRequest(t, "report.pdf", []byte("two")))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	var listed []storage.StoredObject
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 2)
	require.NotEqual(t, listed[0].Key, listed[1].Key)
}

func TestDownloadMissingFile(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/files/missing.txt/download", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShareLinkRoundtrip(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	content := []byte("shared content")

	rec := do(r, uploadRequest(t, "doc.pdf", content))
	require.Equal(t, http.StatusCreated, rec.Code)

	var obj storage.StoredObject
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &obj))

	rec = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+obj.Key+"/share", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var link storage.ShareLink
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &link))
	require.Equal(t, obj.Key, link.Key)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), link.ExpiresAt, 5*time.Second)

	// The link works...
	loc, err := url.Parse(link.URL)
	require.NoError(t, err)
	rec = do(r, httptest.NewRequest(http.MethodGet, loc.Path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, content, rec.Body.Bytes())

	// ...but a tampered token is refused without detail.
	rec = do(r, httptest.NewRequest(http.MethodGet, loc.Path+"x", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	env = decodeEnvelope(t, rec)
	require.Equal(t, "link expired or invalid", env.Error)
}

func TestShareMissingFile(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/files/missing.pdf/share", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
