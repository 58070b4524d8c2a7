package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coldeye/cmd/identity/ids"
)

func discardLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfigResolvedTokenStore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "memory without db", cfg: Config{}, want: TokenStoreMemory},
		{name: "postgres with db", cfg: Config{DatabaseURL: "postgres://localhost/coldeye"}, want: TokenStorePostgres},
		{name: "explicit redis", cfg: Config{DatabaseURL: "postgres://localhost/coldeye", TokenStore: TokenStoreRedis}, want: TokenStoreRedis},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cfg.ResolvedTokenStore(); got != tc.want {
				t.Fatalf("ResolvedTokenStore()=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory ok", cfg: Config{LogFormat: "json"}},
		{name: "pretty ok", cfg: Config{LogFormat: "pretty"}},
		{name: "postgres needs db", cfg: Config{LogFormat: "json", TokenStore: TokenStorePostgres}, wantErr: "COLDEYE_DATABASE_URL"},
		{name: "redis needs addr", cfg: Config{LogFormat: "json", TokenStore: TokenStoreRedis}, wantErr: "COLDEYE_REDIS_ADDR"},
		{name: "unknown store", cfg: Config{LogFormat: "json", TokenStore: "etcd"}, wantErr: "unknown COLDEYE_TOKEN_STORE"},
		{name: "unknown format", cfg: Config{LogFormat: "xml"}, wantErr: "COLDEYE_LOG_FORMAT"},
		{name: "migrate needs db", cfg: Config{LogFormat: "json", MigrateOnStart: true}, wantErr: "COLDEYE_MIGRATE_ON_START"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	t.Run("not required", func(t *testing.T) {
		t.Setenv("COLDEYE_TOKEN_HMAC_KEY", "")
		if err := ValidateSecurityConfig(Config{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("COLDEYE_TOKEN_HMAC_KEY", "")
		err := ValidateSecurityConfig(Config{RequireTokenHMAC: true})
		if err == nil || !strings.Contains(err.Error(), "missing") {
			t.Fatalf("expected missing key error, got %v", err)
		}
	})

	t.Run("short key", func(t *testing.T) {
		t.Setenv("COLDEYE_TOKEN_HMAC_KEY", "short")
		err := ValidateSecurityConfig(Config{RequireTokenHMAC: true})
		if err == nil || !strings.Contains(err.Error(), "too short") {
			t.Fatalf("expected short key error, got %v", err)
		}
	})

	t.Run("keyed hasher", func(t *testing.T) {
		t.Setenv("COLDEYE_TOKEN_HMAC_KEY", strings.Repeat("k", 32))
		h, err := tokenHasher(Config{RequireTokenHMAC: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !h.Keyed() {
			t.Fatalf("expected HMAC hasher")
		}
	})
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newMemoryApp(t *testing.T) *httptest.Server {
	t.Helper()

	t.Setenv("COLDEYE_PASSWORD_SCHEME", "sha256")
	t.Setenv("COLDEYE_TOKEN_HMAC_KEY", "")

	cfg := Config{
		LogFormat:        "json",
		TokenStore:       TokenStoreMemory,
		MetricsEnabled:   true,
		DevAdminUsername: "admin",
		DevAdminPassword: "correct-horse",
	}
	a, err := New(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("token", token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp, env
}

func TestApp_MemoryModeLoginFlow(t *testing.T) {
	srv := newMemoryApp(t)

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/sys/user/login", "", `{"username":"admin","password":"wrong-password"}`)
	if resp.StatusCode != http.StatusForbidden || env.Status != http.StatusForbidden {
		t.Fatalf("bad password: got %d/%d", resp.StatusCode, env.Status)
	}

	resp, env = doJSON(t, http.MethodPost, srv.URL+"/sys/user/login", "", `{"username":"admin","password":"correct-horse"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: got %d (%s)", resp.StatusCode, env.Message)
	}
	if !ids.IsULID(resp.Header.Get("X-Request-Id")) {
		t.Fatalf("expected request id header, got %q", resp.Header.Get("X-Request-Id"))
	}

	var tok struct {
		UserID int64  `json:"userId"`
		Token  string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &tok); err != nil || tok.Token == "" {
		t.Fatalf("decode token: %v (%s)", err, env.Data)
	}

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/sys/user/info", tok.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info: got %d (%s)", resp.StatusCode, env.Message)
	}
	var info struct {
		Username string `json:"username"`
		Company  string `json:"company"`
	}
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Username != "admin" || info.Company != "月迹" {
		t.Fatalf("unexpected info: %+v", info)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/sys/company/list?page=1&limit=10", tok.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("company list: got %d", resp.StatusCode)
	}

	resp, env = doJSON(t, http.MethodPost, srv.URL+"/sys/user/logout", tok.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: got %d (%s)", resp.StatusCode, env.Message)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/sys/user/info", tok.Token, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("info after logout: got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/sys/company/list", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("company list without token: got %d", resp.StatusCode)
	}
}

func TestApp_OpsEndpoints(t *testing.T) {
	srv := newMemoryApp(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: got %d", path, resp.StatusCode)
		}
	}

	// One failed login so the counters have a sample.
	_, _ = doJSON(t, http.MethodPost, srv.URL+"/sys/user/login", "", `{"username":"nobody","password":"whatever1"}`)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"coldeye_http_requests_total",
		`coldeye_auth_logins_total{outcome="invalid_credentials"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestReadyz_RequireDBWithoutDB(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	registerHTTP(mux, discardLogger(), Config{ReadinessRequireDB: true}, routes{})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestNew_DevAdminNeedsPassword(t *testing.T) {
	t.Setenv("COLDEYE_PASSWORD_SCHEME", "sha256")

	_, err := New(context.Background(), Config{LogFormat: "json", DevAdminUsername: "admin"}, discardLogger())
	if err == nil || !strings.Contains(err.Error(), "COLDEYE_DEV_ADMIN_PASSWORD") {
		t.Fatalf("expected dev admin password error, got %v", err)
	}
}
