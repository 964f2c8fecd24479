package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestIDPropagation(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "caller id kept", header: "abc-123", keep: true},
		{name: "missing id minted", header: ""},
		{name: "unsafe id replaced", header: "bad id\r\nx: y"},
		{name: "oversized id replaced", header: strings.Repeat("a", maxRequestIDLen+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("X-Request-ID", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if seen == "" || rec.Header().Get("X-Request-ID") != seen {
				t.Fatalf("request id %q, header %q", seen, rec.Header().Get("X-Request-ID"))
			}
			if tc.keep != (seen == tc.header) {
				t.Fatalf("keep=%v but got %q for %q", tc.keep, seen, tc.header)
			}
		})
	}
}

func TestLoggerWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	h := RequestID(Logger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})))
	req := httptest.NewRequest(http.MethodGet, "/brew", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"message":"inside"`, `"request_id":"rid-1"`, `"status":418`, `"path":"/brew"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s:\n%s", want, out)
		}
	}
}
