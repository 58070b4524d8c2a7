package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWriteError_StatusMirrorsEnvelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusForbidden, "nope")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var env map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env["status"].(float64) != 403 || env["message"] != "nope" {
		t.Fatalf("unexpected envelope: %v", env)
	}
	if _, ok := env["data"]; ok {
		t.Fatalf("data must be omitted on errors")
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"ok", `{"a":"b"}`, false},
		{"trailing", `{"a":"b"} {}`, true},
		{"garbage", `not json`, true},
		{"too large", `{"a":"` + strings.Repeat("x", 64) + `"}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst map[string]string
			err := DecodeJSON(httptest.NewRecorder(), req, 32, &dst)
			if (err != nil) != tc.wantErr {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2021, 2, 2, 7, 41, 20, 0, time.Local)
	if got := FormatTime(ts); got != "2021-02-02 07:41:20" {
		t.Fatalf("unexpected format: %q", got)
	}
	if FormatTime(time.Time{}) != "" {
		t.Fatalf("zero time should render empty")
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := ClientIP(req, false).String(); got != "10.0.0.1" {
		t.Fatalf("untrusted proxy: expected remote addr, got %s", got)
	}
	if got := ClientIP(req, true).String(); got != "203.0.113.9" {
		t.Fatalf("trusted proxy: expected forwarded addr, got %s", got)
	}
}
