package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"nanobanana/internal/intake"
	"nanobanana/internal/middleware"
	"nanobanana/internal/session"
	"nanobanana/internal/transform"
	"nanobanana/internal/workflow"
)

const testSession = "11111111-2222-3333-4444-555555555555"

type testBackend struct {
	server  *httptest.Server
	calls   atomic.Int32
	release chan struct{}
}

// newTestBackend fakes the transformation service. handler may be nil for a
// backend that always succeeds.
func newTestBackend(t *testing.T, handler http.HandlerFunc) *testBackend {
	t.Helper()
	b := &testBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/transform", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		if b.release != nil {
			<-b.release
		}
		if handler != nil {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":          true,
			"transformedImage": base64.StdEncoding.EncodeToString([]byte("PNGDATA")),
			"mimeType":         "image/png",
			"style":            r.FormValue("style"),
		})
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

type fixture struct {
	app *App
	svc *workflow.Service
}

func newFixture(t *testing.T, baseURL string) *fixture {
	t.Helper()
	log := zerolog.Nop()
	client := transform.NewClient(transform.Options{BaseURL: baseURL, Timeout: 5 * time.Second})
	svc := workflow.NewService(workflow.ServiceOptions{
		Store:   session.NewMemoryStore(time.Hour, log),
		Client:  client,
		Logger:  log,
		Timeout: 5 * time.Second,
	})
	app, err := NewApp(Options{
		Service: svc,
		Intake:  intake.New(intake.Options{MaxBytes: 1 << 20}),
		Backend: client,
		Theme:   "purple",
		Logger:  log,
	})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(svc.Wait)
	return &fixture{app: app, svc: svc}
}

func (f *fixture) do(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(middleware.ContextWithSessionID(req.Context(), testSession))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func jsonPost(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return req
}

func uploadRequest(t *testing.T, name, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var v sessionView
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode session view: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func (f *fixture) upload(t *testing.T) {
	t.Helper()
	rec := f.do(f.app.Upload, uploadRequest(t, "cat.png", "image/png", pngBytes(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func (f *fixture) session(t *testing.T) sessionView {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	return decodeView(t, f.do(f.app.Session, req))
}

func TestUploadNonImageKeepsSelection(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)

	rec := f.do(f.app.Upload, uploadRequest(t, "notes.txt", "text/plain", []byte("hello")))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	v := decodeView(t, rec)
	if v.Image != nil || v.Error != "Please choose an image file" {
		t.Fatalf("unexpected view after rejected upload: %+v", v)
	}

	f.upload(t)
	v = f.session(t)
	if v.Image == nil || v.Image.Name != "cat.png" || v.Image.Width != 4 || v.Image.Height != 3 {
		t.Fatalf("image not selected: %+v", v.Image)
	}
	if v.Phase != workflow.PhaseReady || v.Error != "" {
		t.Fatalf("phase = %q error = %q", v.Phase, v.Error)
	}

	rec = f.do(f.app.Upload, uploadRequest(t, "notes.txt", "text/plain", []byte("hello")))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	v = decodeView(t, rec)
	if v.Image == nil || v.Image.Name != "cat.png" {
		t.Fatalf("rejected upload replaced the selection: %+v", v.Image)
	}
}

func TestUploadTooLarge(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)

	big := make([]byte, (1<<20)+10)
	rec := f.do(f.app.Upload, uploadRequest(t, "big.png", "image/png", big))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if v := decodeView(t, rec); v.Image != nil {
		t.Fatalf("oversized image was selected")
	}
}

func TestTransformRequiresImage(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)

	rec := f.do(f.app.Transform, jsonPost("/transform", url.Values{}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if v := decodeView(t, rec); v.Error != "Please upload an image first" || v.InFlight {
		t.Fatalf("unexpected view: %+v", v)
	}
	f.svc.Wait()
	if n := backend.calls.Load(); n != 0 {
		t.Fatalf("backend called %d times", n)
	}
}

func TestTransformCustomModeNeedsPrompt(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)
	f.upload(t)

	rec := f.do(f.app.SetMode, jsonPost("/mode", url.Values{"custom": {"true"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("mode status = %d", rec.Code)
	}
	rec = f.do(f.app.Transform, jsonPost("/transform", url.Values{"prompt": {"   "}}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if v := decodeView(t, rec); v.Error != "Please enter a custom prompt" {
		t.Fatalf("error = %q", v.Error)
	}
	f.svc.Wait()
	if n := backend.calls.Load(); n != 0 {
		t.Fatalf("backend called %d times", n)
	}
}

func TestTransformSuccessThenDownload(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)
	f.upload(t)

	rec := f.do(f.app.Download, httptest.NewRequest(http.MethodGet, "/download", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("download before result: status %d", rec.Code)
	}

	rec = f.do(f.app.Transform, jsonPost("/transform", url.Values{"style": {"Picasso Style"}}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("transform status = %d, body %s", rec.Code, rec.Body.String())
	}
	if v := decodeView(t, rec); !v.InFlight || v.Phase != workflow.PhaseSubmitting {
		t.Fatalf("expected submitting view, got %+v", v)
	}
	f.svc.Wait()

	v := f.session(t)
	if v.InFlight || v.Error != "" || v.Result == nil {
		t.Fatalf("unexpected view after transform: %+v", v)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("PNGDATA"))
	if v.Result.DataURL != want {
		t.Fatalf("data url = %q, want %q", v.Result.DataURL, want)
	}
	if v.Result.Label != "Picasso Style" || !v.CanDownload {
		t.Fatalf("label = %q can_download = %v", v.Result.Label, v.CanDownload)
	}

	f.app.now = func() time.Time { return time.UnixMilli(1700000000123) }
	rec = f.do(f.app.Download, httptest.NewRequest(http.MethodGet, "/download", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if rec.Body.String() != "PNGDATA" {
		t.Fatalf("download body = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="transformed-1700000000123.png"` {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestTransformBackendDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	base := dead.URL
	dead.Close()
	f := newFixture(t, base)
	f.upload(t)

	rec := f.do(f.app.Transform, jsonPost("/transform", url.Values{}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("transform status = %d", rec.Code)
	}
	f.svc.Wait()

	v := f.session(t)
	if v.InFlight || v.Result != nil {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.Error != transform.MessageConnection {
		t.Fatalf("error = %q, want %q", v.Error, transform.MessageConnection)
	}
}

func TestTransformWhileInFlightConflicts(t *testing.T) {
	backend := newTestBackend(t, nil)
	backend.release = make(chan struct{})
	f := newFixture(t, backend.server.URL)
	f.upload(t)

	if rec := f.do(f.app.Transform, jsonPost("/transform", url.Values{})); rec.Code != http.StatusAccepted {
		t.Fatalf("first submit status = %d", rec.Code)
	}
	if rec := f.do(f.app.Transform, jsonPost("/transform", url.Values{})); rec.Code != http.StatusConflict {
		t.Fatalf("second submit status = %d, want 409", rec.Code)
	}
	if rec := f.do(f.app.SetMode, jsonPost("/mode", url.Values{"custom": {"true"}})); rec.Code != http.StatusConflict {
		t.Fatalf("mode toggle in flight status = %d, want 409", rec.Code)
	}
	close(backend.release)
	f.svc.Wait()

	if n := backend.calls.Load(); n != 1 {
		t.Fatalf("backend called %d times, want 1", n)
	}
	if v := f.session(t); v.InFlight || v.Result == nil {
		t.Fatalf("unexpected view after completion: %+v", v)
	}
}

func TestModeToggleClearsOutcome(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)
	f.upload(t)
	f.do(f.app.Transform, jsonPost("/transform", url.Values{}))
	f.svc.Wait()
	if v := f.session(t); v.Result == nil {
		t.Fatalf("expected a result before toggling")
	}

	rec := f.do(f.app.SetMode, jsonPost("/mode", url.Values{"custom": {"true"}}))
	v := decodeView(t, rec)
	if v.Result != nil || v.Error != "" || v.Mode != "custom" || v.Prompt != "" {
		t.Fatalf("toggle did not clear outcome: %+v", v)
	}
	if v.CanDownload {
		t.Fatalf("download still available after toggle")
	}
}

func TestSelectStyleUnknown(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)

	rec := f.do(f.app.SelectStyle, jsonPost("/style", url.Values{"style": {"Cubism 2000"}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	rec = f.do(f.app.SelectStyle, jsonPost("/style", url.Values{"style": {"Miniature Effect"}}))
	if v := decodeView(t, rec); rec.Code != http.StatusOK || v.Style != "Miniature Effect" {
		t.Fatalf("status = %d style = %q", rec.Code, v.Style)
	}
}

func TestMalformedFormRejected(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)
	f.upload(t)

	handlers := map[string]http.HandlerFunc{
		"/transform": f.app.Transform,
		"/style":     f.app.SelectStyle,
		"/mode":      f.app.SetMode,
		"/prompt":    f.app.SetPrompt,
	}
	for target, h := range handlers {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader("style=%zz"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		if rec := f.do(h, req); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want 400", target, rec.Code)
		}
	}
	f.svc.Wait()
	if n := backend.calls.Load(); n != 0 {
		t.Fatalf("backend called %d times", n)
	}
	if v := f.session(t); v.InFlight || v.Phase != workflow.PhaseReady {
		t.Fatalf("session changed: %+v", v)
	}
}

func TestFormPostRedirects(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)

	req := httptest.NewRequest(http.MethodPost, "/error/dismiss", nil)
	rec := f.do(f.app.DismissError, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestIndexRendersPhases(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)

	rec := f.do(f.app.Index, httptest.NewRequest(http.MethodGet, "/?theme=emerald", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Drop your image here", `class="theme-emerald"`, `data-phase="idle"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	f.upload(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.LocaleKey, language.Indonesian))
	body = f.do(f.app.Index, req).Body.String()
	for _, want := range []string{`lang="id"`, "Ubah Foto Anda", "Siap diubah", `src="data:image/png;base64,`, `data-phase="ready"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestBackendHealth(t *testing.T) {
	backend := newTestBackend(t, nil)
	f := newFixture(t, backend.server.URL)
	rec := f.do(f.app.BackendHealth, httptest.NewRequest(http.MethodGet, "/api/backend/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	dead := httptest.NewServer(http.NotFoundHandler())
	base := dead.URL
	dead.Close()
	f = newFixture(t, base)
	rec = f.do(f.app.BackendHealth, httptest.NewRequest(http.MethodGet, "/api/backend/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "down" || payload["message"] != transform.MessageConnection {
		t.Fatalf("payload = %#v", payload)
	}
}

func TestSafeImageURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"data:text/html;base64,AAAA", ""},
		{"data:image/png,AAAA", ""},
		{`data:image/png;base64,AA"onerror=x`, ""},
		{"javascript:alert(1)", ""},
	}
	for _, tc := range tests {
		if got := string(safeImageURL(tc.in)); got != tc.want {
			t.Fatalf("safeImageURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
