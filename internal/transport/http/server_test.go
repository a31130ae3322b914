package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"

	"gopherform/internal/bootstrap"
	"gopherform/internal/config"
	"gopherform/internal/model"
)

type apiFixture struct {
	app    *bootstrap.App
	router *gin.Engine
}

func newFixture(t *testing.T, initialize bool) *apiFixture {
	t.Helper()
	return newFixtureWithEnv(t, initialize, nil)
}

func newFixtureWithEnv(t *testing.T, initialize bool, env map[string]string) *apiFixture {
	t.Helper()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("STORAGE_DRIVER", config.StorageMemory)
	t.Setenv("UPLOAD_DIR", filepath.Join(t.TempDir(), "uploads"))
	t.Setenv("GIN_MODE", gin.TestMode)
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("RABBITMQ_ENABLED", "false")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	app, err := bootstrap.NewWithConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("bootstrap error = %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	router := NewRouter(app)
	if initialize {
		if err := app.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
	}
	return &apiFixture{app: app, router: router}
}

func (f *apiFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *apiFixture) submit(t *testing.T, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(content)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/submit", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return f.do(t, req)
}

func (f *apiFixture) list(t *testing.T) []model.Submission {
	t.Helper()
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rr.Code, rr.Body.String())
	}
	var out []model.Submission
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return out
}

func (f *apiFixture) delete(t *testing.T, id string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, httptest.NewRequest(http.MethodDelete, "/api/submissions/"+id, nil))
}

func validFields(name string) map[string]string {
	return map[string]string{"name": name, "email": name + "@example.com", "message": "hello from " + name}
}

func TestRouter_LivenessAndReadiness(t *testing.T) {
	f := newFixture(t, false)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "Form submission service is running" {
		t.Errorf("GET / = %d %q", rr.Code, rr.Body.String())
	}

	if rr := f.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz before init = %d, want 503", rr.Code)
	}
	if rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions", nil)); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /api/submissions before init = %d, want 503", rr.Code)
	}
	if rr := f.submit(t, validFields("early"), "", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("POST /api/submit before init = %d, want 503", rr.Code)
	}

	if err := f.app.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if rr := f.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != http.StatusOK {
		t.Errorf("GET /readyz after init = %d, want 200", rr.Code)
	}
	if rr := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusOK {
		t.Errorf("GET /healthz after init = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
}

func TestRouter_SubmitWithoutImageAppearsInList(t *testing.T) {
	f := newFixture(t, true)

	rr := f.submit(t, validFields("ada"), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rr.Code, rr.Body.String())
	}

	list := f.list(t)
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	if list[0].Name != "ada" || list[0].Image != nil {
		t.Errorf("list[0] = %+v", list[0])
	}
}

func TestRouter_SubmitMissingFieldsCreatesNothing(t *testing.T) {
	f := newFixture(t, true)

	for _, missing := range []string{"name", "email", "message"} {
		fields := validFields("bob")
		delete(fields, missing)
		if rr := f.submit(t, fields, "", nil); rr.Code != http.StatusBadRequest {
			t.Errorf("submit without %s = %d, want 400", missing, rr.Code)
		}
	}

	if list := f.list(t); len(list) != 0 {
		t.Errorf("rows created: %d", len(list))
	}
}

func TestRouter_ListNewestFirst(t *testing.T) {
	f := newFixture(t, true)

	for _, name := range []string{"t1", "t2", "t3"} {
		if rr := f.submit(t, validFields(name), "", nil); rr.Code != http.StatusOK {
			t.Fatalf("submit %s = %d", name, rr.Code)
		}
		time.Sleep(2 * time.Millisecond)
	}

	list := f.list(t)
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	for i, want := range []string{"t3", "t2", "t1"} {
		if list[i].Name != want {
			t.Errorf("list[%d] = %q, want %q", i, list[i].Name, want)
		}
	}
}

func TestRouter_UploadRoundTripAndDelete(t *testing.T) {
	f := newFixture(t, true)
	content := []byte("\x89PNG\r\n\x1a\nnot really a png")

	rr := f.submit(t, validFields("pic"), "photo.png", content)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Data struct {
			Image *string `json:"image"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if created.Data.Image == nil {
		t.Fatal("image reference missing from response")
	}
	imageURL := "/" + *created.Data.Image

	rr = f.do(t, httptest.NewRequest(http.MethodGet, imageURL, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET %s = %d", imageURL, rr.Code)
	}
	got, _ := io.ReadAll(rr.Body)
	if !bytes.Equal(got, content) {
		t.Errorf("served bytes differ: got %q", got)
	}

	list := f.list(t)
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	id := jsonID(list[0].ID)

	if rr := f.delete(t, id); rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rr.Code, rr.Body.String())
	}
	if list := f.list(t); len(list) != 0 {
		t.Errorf("rows after delete = %d", len(list))
	}
	if rr := f.do(t, httptest.NewRequest(http.MethodGet, imageURL, nil)); rr.Code != http.StatusNotFound {
		t.Errorf("GET %s after delete = %d, want 404", imageURL, rr.Code)
	}

	if rr := f.delete(t, id); rr.Code != http.StatusOK {
		t.Errorf("second delete status = %d, want 200", rr.Code)
	}
}

func TestRouter_DeleteUnknownIDLeavesRows(t *testing.T) {
	f := newFixture(t, true)

	if rr := f.submit(t, validFields("keep"), "", nil); rr.Code != http.StatusOK {
		t.Fatalf("submit = %d", rr.Code)
	}

	rr := f.delete(t, "424242")
	if rr.Code != http.StatusOK {
		t.Errorf("delete unknown = %d, want 200", rr.Code)
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Message != "Submission deleted successfully" {
		t.Errorf("message = %q", body.Message)
	}
	if list := f.list(t); len(list) != 1 {
		t.Errorf("rows = %d, want 1", len(list))
	}
}

func TestRouter_HealthChecksListCache(t *testing.T) {
	mr := miniredis.RunT(t)
	f := newFixtureWithEnv(t, true, map[string]string{
		"REDIS_ENABLED": "true",
		"REDIS_ADDR":    mr.Addr(),
	})
	if f.app.ListCache == nil {
		t.Fatal("ListCache = nil with redis enabled")
	}

	var body struct {
		Dependencies map[string]struct {
			OK      bool `json:"ok"`
			Enabled bool `json:"enabled"`
		} `json:"dependencies"`
	}
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d, body = %s", rr.Code, rr.Body.String())
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if dep := body.Dependencies["redis"]; !dep.OK || !dep.Enabled {
		t.Errorf("redis status = %+v", dep)
	}

	mr.Close()
	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz with redis down = %d, want 503", rr.Code)
	}
}

func TestRouter_SubmissionEvents(t *testing.T) {
	f := newFixture(t, true)

	if rr := f.submit(t, validFields("ada"), "", nil); rr.Code != http.StatusOK {
		t.Fatalf("submit = %d", rr.Code)
	}
	id := f.list(t)[0].ID

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions/"+jsonID(id)+"/events", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("events = %d, body = %s", rr.Code, rr.Body.String())
	}
	var events []model.SubmissionEvent
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	// Nothing consumes events without a broker, so the history is empty.
	if events == nil || len(events) != 0 {
		t.Errorf("events = %#v, want empty list", events)
	}

	if rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions/nope/events", nil)); rr.Code != http.StatusBadRequest {
		t.Errorf("events bad id = %d, want 400", rr.Code)
	}
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
