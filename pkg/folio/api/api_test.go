package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/folio/pkg/folio"
	"github.com/tendant/folio/pkg/folio/auth"
	"github.com/tendant/folio/pkg/folio/repo/memory"
	memorystorage "github.com/tendant/folio/pkg/folio/storage/memory"
)

var (
	pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)
)

type testEnv struct {
	router  *chi.Mux
	service folio.Service
	blobs   *memorystorage.Backend
}

func setupAPITest(t *testing.T, opts ...HandlerOption) *testEnv {
	t.Helper()
	return setupAPITestWithRepo(t, memory.New(), opts...)
}

func setupAPITestWithRepo(t *testing.T, repo folio.Repository, opts ...HandlerOption) *testEnv {
	t.Helper()
	blobs := memorystorage.New(memorystorage.Config{URLPrefix: "https://cdn.example.com"})
	svc, err := folio.New(folio.WithRepository(repo), folio.WithBlobStore(blobs))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewHandler(svc, opts...).Routes(r, nil)
	})
	return &testEnv{router: r, service: svc, blobs: blobs}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func multipartRequest(t *testing.T, path, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestGetContent_Empty(t *testing.T) {
	env := setupAPITest(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/content", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestSaveContent_ThenGet(t *testing.T) {
	env := setupAPITest(t)

	body := `{"hero":{"title":"Hi","subtitle":"Dev"},"skills":{"title":"S","skillList":[{"id":"1","name":"Go","level":"Expert"}]}}`
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Content saved successfully!"}`, rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader(`{"hero":{"title":"Hello"}}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/content", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	// hero is replaced wholesale, skills untouched
	assert.JSONEq(t,
		`{"hero":{"title":"Hello"},"skills":{"title":"S","skillList":[{"id":"1","name":"Go","level":"Expert"}]}}`,
		rec.Body.String())
}

func TestSaveContent_RejectsNonObject(t *testing.T) {
	env := setupAPITest(t)

	for _, body := range []string{`[1,2]`, `"hero"`, `null`, `{bad json`, ``} {
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, "Failed to save content.", decodeBody(t, rec)["message"])
	}
}

func TestSaveContent_RejectsTrailingData(t *testing.T) {
	env := setupAPITest(t)

	for _, body := range []string{`{"a":1}{"b":2} junk`, `{"a":1} junk`, `{"a":1}{"b":2}`} {
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	// trailing whitespace is fine
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader("{\"a\":1}\n  ")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	content, err := env.service.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, content, 1)
	assert.JSONEq(t, `1`, string(content["a"]))
}

func TestSaveContent_BodyTooLarge(t *testing.T) {
	env := setupAPITest(t, WithMaxUploadBytes(64))

	body := `{"hero":{"title":"` + strings.Repeat("x", 200) + `"}}`
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// failingRepository fails every write to one key.
type failingRepository struct {
	folio.Repository
	failKey string
}

func (f *failingRepository) Upsert(ctx context.Context, key string, value []byte) error {
	if key == f.failKey {
		return errors.New("connection reset by peer")
	}
	return f.Repository.Upsert(ctx, key, value)
}

func TestSaveContent_PartialFailure(t *testing.T) {
	repo := &failingRepository{Repository: memory.New(), failKey: "hero"}
	env := setupAPITestWithRepo(t, repo)

	body := `{"about":{"text":"a"},"hero":{"title":"h"},"skills":{"skillList":[]}}`
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Failed to save content.", resp["message"])
	assert.Contains(t, resp["error"], "connection reset by peer")

	// about sorts before hero and stays written
	content, err := env.service.GetAll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, content, "about")
	assert.NotContains(t, content, "hero")
	assert.NotContains(t, content, "skills")
}

func TestSkills(t *testing.T) {
	env := setupAPITest(t)

	t.Run("missing section", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/skills", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	require.NoError(t, env.service.UpsertMany(context.Background(), map[string]any{
		"skills": map[string]any{"title": "Skills", "skillList": []any{map[string]any{"id": "1", "name": "Go", "level": "Expert"}}},
	}))

	t.Run("replace list", func(t *testing.T) {
		body := `[{"id":"2","name":"Rust","level":"Learning"},{"id":"3","name":"SQL","level":"Good"}]`
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/skills", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"message":"Skills updated successfully"}`, rec.Body.String())

		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/skills", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`{"title":"Skills","skillList":[{"id":"2","name":"Rust","level":"Learning"},{"id":"3","name":"SQL","level":"Good"}]}`,
			rec.Body.String())
	})

	t.Run("string list", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/skills", strings.NewReader(`["Go","Rust"]`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/skills", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"title":"Skills","skillList":["Go","Rust"]}`, rec.Body.String())
	})

	t.Run("elements stored as sent", func(t *testing.T) {
		body := `[{"name":"Go","icon":"go.svg","level":3},"Rust"]`
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/skills", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/skills", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"title":"Skills","skillList":[{"name":"Go","icon":"go.svg","level":3},"Rust"]}`, rec.Body.String())
	})

	t.Run("empty list", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/skills", strings.NewReader(`[]`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		value, err := env.service.Get(context.Background(), "skills")
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"Skills","skillList":[]}`, string(value))
	})

	t.Run("not an array", func(t *testing.T) {
		for _, body := range []string{`{"name":"Go"}`, `null`, `"Go"`, `["Go"] ["Rust"]`} {
			rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/skills", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
	})

	t.Run("non-object section", func(t *testing.T) {
		require.NoError(t, env.service.UpsertMany(context.Background(), map[string]any{"skills": []any{"Go"}}))
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/skills", strings.NewReader(`[{"name":"Go"}]`)))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestUploadResume(t *testing.T) {
	env := setupAPITest(t)
	require.NoError(t, env.service.UpsertMany(context.Background(), map[string]any{
		"connect": map[string]any{"email": "me@example.com", "resumeUrl": "https://old.example.com/cv.pdf"},
	}))

	rec := env.do(t, multipartRequest(t, "/api/upload-resume", "resume", "cv.pdf", "application/pdf", pdfBytes))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody(t, rec)
	assert.Equal(t, "Upload successful!", resp["message"])
	url, _ := resp["url"].(string)
	assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/resumes/"), url)
	assert.True(t, strings.HasSuffix(url, ".pdf"), url)

	connect, err := env.service.Get(context.Background(), "connect")
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"me@example.com","resumeUrl":"`+url+`"}`, string(connect))

	key := strings.TrimPrefix(url, "https://cdn.example.com/")
	mt, ok := env.blobs.MimeType(key)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", mt)
}

func TestUploadResume_CreatesConnectSection(t *testing.T) {
	env := setupAPITest(t)

	rec := env.do(t, multipartRequest(t, "/api/upload-resume", "resume", "cv.pdf", "", pdfBytes))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	connect, err := env.service.Get(context.Background(), "connect")
	require.NoError(t, err)
	var doc map[string]string
	require.NoError(t, json.Unmarshal(connect, &doc))
	assert.Len(t, doc, 1)
	assert.NotEmpty(t, doc["resumeUrl"])
}

func TestUploadResume_NoFile(t *testing.T) {
	env := setupAPITest(t)

	rec := env.do(t, multipartRequest(t, "/api/upload-resume", "", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded.", decodeBody(t, rec)["message"])

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/upload-resume", strings.NewReader("plain")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.blobs.Len())
}

func TestUploadResume_TooLarge(t *testing.T) {
	env := setupAPITest(t, WithMaxUploadBytes(1024))

	big := append(append([]byte{}, pdfBytes...), bytes.Repeat([]byte("a"), 4096)...)
	rec := env.do(t, multipartRequest(t, "/api/upload-resume", "resume", "cv.pdf", "application/pdf", big))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, env.blobs.Len())
	_, err := env.service.Get(context.Background(), "connect")
	assert.ErrorIs(t, err, folio.ErrSectionNotFound)
}

func TestUploadImage(t *testing.T) {
	env := setupAPITest(t)

	rec := env.do(t, multipartRequest(t, "/api/upload-image", "file", "Avatar.PNG", "image/png", pngBytes))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody(t, rec)
	assert.Equal(t, "Image uploaded successfully", resp["message"])
	publicID, _ := resp["publicId"].(string)
	assert.True(t, strings.HasPrefix(publicID, "images/"), publicID)
	assert.True(t, strings.HasSuffix(publicID, ".png"), publicID)
	assert.Equal(t, "https://cdn.example.com/"+publicID, resp["imageUrl"])

	// image uploads leave the store alone
	content, err := env.service.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestUploadImage_ExtensionFromDetectedType(t *testing.T) {
	env := setupAPITest(t)

	rec := env.do(t, multipartRequest(t, "/api/upload-image", "file", "x.html", "text/html", pngBytes))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	publicID, _ := decodeBody(t, rec)["publicId"].(string)
	assert.True(t, strings.HasSuffix(publicID, ".png"), publicID)
	mimeType, ok := env.blobs.MimeType(publicID)
	require.True(t, ok)
	assert.Equal(t, "image/png", mimeType)
}

func TestUploadImage_RejectsNonImage(t *testing.T) {
	env := setupAPITest(t)

	// the declared type is ignored, the bytes decide
	rec := env.do(t, multipartRequest(t, "/api/upload-image", "file", "evil.png", "image/png", []byte("<html><script>alert(1)</script></html>")))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, 0, env.blobs.Len())
}

func TestUpload_NoBlobStore(t *testing.T) {
	svc, err := folio.New(folio.WithRepository(memory.New()))
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) { NewHandler(svc).Routes(r, nil) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartRequest(t, "/api/upload-image", "file", "a.png", "", pngBytes))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminGate(t *testing.T) {
	sessions, err := auth.NewSessions("secret", time.Hour, auth.ParseAllowList("owner@example.com"))
	require.NoError(t, err)

	svc, err := folio.New(folio.WithRepository(memory.New()), folio.WithBlobStore(memorystorage.New(memorystorage.Config{})))
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) { NewHandler(svc).Routes(r, sessions.Middleware) })

	// reads are public
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{"/api/content", "/api/skills", "/api/upload-resume", "/api/upload-image"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	token, err := sessions.Issue("owner@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader(`{"hero":{"title":"x"}}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
