package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeBackend(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/transform", func(w http.ResponseWriter, r *http.Request) {
		prompts = append(prompts, r.FormValue("useCustomPrompt")+":"+r.FormValue("customPrompt")+":"+r.FormValue("style"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":          true,
			"transformedImage": base64.StdEncoding.EncodeToString([]byte("JPEGDATA")),
			"mimeType":         "image/jpeg",
			"style":            r.FormValue("style"),
		})
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStylesCommand(t *testing.T) {
	out, err := run(t, "styles")
	if err != nil {
		t.Fatalf("styles: %v", err)
	}
	for _, name := range []string{"Anime Style", "Picasso Style", "Oil Painting Style", "Frida Kahlo Style", "Miniature Effect"} {
		if !strings.Contains(out, name) {
			t.Fatalf("output missing %q:\n%s", name, out)
		}
	}
}

func TestHealthCommand(t *testing.T) {
	srv, _ := fakeBackend(t)
	out, err := run(t, "--api-url", srv.URL, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "is up") {
		t.Fatalf("output = %q", out)
	}
}

func TestTransformCommandWritesResult(t *testing.T) {
	srv, prompts := fakeBackend(t)
	dir := t.TempDir()
	img := writePNG(t, dir)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "--api-url", srv.URL, "transform", img, "--style", "Picasso Style", "--out", outDir)
	if err != nil {
		t.Fatalf("transform: %v\n%s", err, out)
	}
	matches, _ := filepath.Glob(filepath.Join(outDir, "transformed-*.jpg"))
	if len(matches) != 1 {
		t.Fatalf("expected one output file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil || string(data) != "JPEGDATA" {
		t.Fatalf("output file = %q, %v", data, err)
	}
	if len(*prompts) != 1 || (*prompts)[0] != "false::Picasso Style" {
		t.Fatalf("backend saw %v", *prompts)
	}
}

func TestTransformCommandCustomPrompt(t *testing.T) {
	srv, prompts := fakeBackend(t)
	dir := t.TempDir()
	img := writePNG(t, dir)

	if _, err := run(t, "--api-url", srv.URL, "transform", img, "--prompt", " neon city ", "--out", dir); err != nil {
		t.Fatalf("transform: %v", err)
	}
	if len(*prompts) != 1 || (*prompts)[0] != "true:neon city:Anime Style" {
		t.Fatalf("backend saw %v", *prompts)
	}
}

func TestTransformCommandRejectsBlankPromptAndText(t *testing.T) {
	srv, prompts := fakeBackend(t)
	dir := t.TempDir()
	img := writePNG(t, dir)

	out, err := run(t, "--api-url", srv.URL, "transform", img, "--prompt", "   ", "--out", dir)
	if err == nil || !strings.Contains(out, "Please enter a custom prompt") {
		t.Fatalf("expected blank prompt failure, got %v\n%s", err, out)
	}

	txt := filepath.Join(dir, "notes.txt")
	_ = os.WriteFile(txt, []byte("hello"), 0o644)
	out, err = run(t, "--api-url", srv.URL, "transform", txt, "--out", dir)
	if err == nil || !strings.Contains(out, "Please choose an image file") {
		t.Fatalf("expected non-image failure, got %v\n%s", err, out)
	}
	if len(*prompts) != 0 {
		t.Fatalf("backend called for invalid input: %v", *prompts)
	}
}
