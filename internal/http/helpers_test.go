package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"autolot/internal/config"
	"autolot/internal/http/handlers"
	"autolot/internal/notify"
	"autolot/internal/services"
	"autolot/internal/storage/blob"
	"autolot/internal/storage/kv"
)

const testCode = "correct-secret"

func testConfig() config.Config {
	return config.Config{
		AdminAccessCode:        testCode,
		MaxAdminUploadBytes:    1 << 20,
		MaxCustomerUploadBytes: 1 << 10,
		StoreTimeout:           time.Second,
	}
}

func newTestApp(t *testing.T, cfg config.Config) (*fiber.App, *handlers.Deps) {
	t.Helper()
	store, err := kv.OpenSQLite(":memory:", time.Second)
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	blobs, err := blob.NewFSStore(t.TempDir(), "http://localhost/media")
	if err != nil {
		t.Fatalf("open blobs: %v", err)
	}
	deps := handlers.NewDeps(cfg, store, blobs, services.NewSharedSecretGate(cfg.AdminAccessCode), notify.LogNotifier{})
	return handlers.NewApp(deps), deps
}

type reqOpt func(*http.Request)

func withAdmin(code string) reqOpt {
	return func(r *http.Request) { r.Header.Set(handlers.AdminHeader, code) }
}

func do(t *testing.T, app *fiber.App, method, path string, body io.Reader, opts ...reqOpt) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, opts ...reqOpt) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return do(t, app, method, path, r, opts...)
}

type part struct {
	field, name, content string
}

// multipartBody builds a form; parts with an empty name are plain fields.
func multipartBody(t *testing.T, parts ...part) (io.Reader, reqOpt) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.name == "" {
			if err := w.WriteField(p.field, p.content); err != nil {
				t.Fatal(err)
			}
			continue
		}
		fw, err := w.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(p.content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	ct := w.FormDataContentType()
	return &buf, func(r *http.Request) { r.Header.Set("Content-Type", ct) }
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Admin  bool           `json:"admin"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedBuf{b: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
