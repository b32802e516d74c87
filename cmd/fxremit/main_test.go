package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, data interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"StatusCode": "00",
			"StatusDesc": "Success",
			"data":       data,
		})
	}
	mux.HandleFunc("/api/Customer/Login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]interface{}{
			"C_Name":       "Ali",
			"CustomerRef":  "C-1001",
			"AccessToken":  "access-1",
			"RefreshToken": "refresh-1",
		})
	})
	mux.HandleFunc("/api/Rates", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]interface{}{
			"Rates": []map[string]interface{}{
				{"CurrencyCode": "USD", "CurrencyName": "US Dollar", "BuyRate": 3.75, "SellRate": 3.77},
			},
		})
	})
	mux.HandleFunc("/api/Deals", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "C-1001", r.URL.Query().Get("CustomerRef"))
		reply(w, map[string]interface{}{
			"Deals": []map[string]interface{}{
				{"DealRef": "D-1", "DealType": "BUY", "CurrencyCode": "USD", "Amount": 100, "Rate": 3.77, "Status": "BOOKED", "DealDate": "2026-03-01"},
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testEnv(baseURL, sessionPath string) func(string) string {
	env := map[string]string{
		"FXREMIT_BASE_URL":        baseURL,
		"FXREMIT_SESSION_BACKEND": "file",
		"FXREMIT_SESSION_PATH":    sessionPath,
		"FXREMIT_LOG_LEVEL":       "error",
	}
	return func(key string) string { return env[key] }
}

func runCLI(t *testing.T, getenv func(string) string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, getenv)
	return code, stdout.String(), stderr.String()
}

func TestRun_SessionLifecycle(t *testing.T) {
	server := fakeAPI(t)
	getenv := testEnv(server.URL, filepath.Join(t.TempDir(), "session.json"))

	code, out, _ := runCLI(t, getenv, "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Not logged in")

	code, out, errOut := runCLI(t, getenv, "login", "-user", "ali", "-password", "secret", "-remember")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Logged in as Ali")

	code, out, _ = runCLI(t, getenv, "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "C-1001")

	code, out, errOut = runCLI(t, getenv, "deals", "-json")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, `"DealRef": "D-1"`)

	code, out, _ = runCLI(t, getenv, "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Logged out")

	code, out, _ = runCLI(t, getenv, "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Not logged in")

	code, out, errOut = runCLI(t, getenv, "login", "-silent")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Logged in as Ali")
}

func TestRun_RatesTable(t *testing.T) {
	server := fakeAPI(t)
	getenv := testEnv(server.URL, filepath.Join(t.TempDir(), "session.json"))

	code, out, errOut := runCLI(t, getenv, "rates", "-currency", "usd")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "USD")
	assert.Contains(t, out, "US Dollar")
	assert.Contains(t, out, "0.0200")
}

func TestRun_BookValidation(t *testing.T) {
	server := fakeAPI(t)
	getenv := testEnv(server.URL, filepath.Join(t.TempDir(), "session.json"))

	code, _, errOut := runCLI(t, getenv, "book", "-type", "BUY", "-currency", "USD", "-amount", "100")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "error:")
}

func TestRun_Usage(t *testing.T) {
	getenv := func(string) string { return "" }

	code, _, errOut := runCLI(t, getenv)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage: fxremit")

	code, _, errOut = runCLI(t, getenv, "-config", filepath.Join(t.TempDir(), "missing.yaml"), "status")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "config:")
}

func TestRun_UnknownCommand(t *testing.T) {
	getenv := testEnv("http://127.0.0.1:1", filepath.Join(t.TempDir(), "session.json"))

	code, _, errOut := runCLI(t, getenv, "transfer")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "transfer"`)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fxremit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://api.example.test
timeout: 10s
rate_per_second: 2
retry:
  max_retries: 3
  retry_wait: 500ms
  max_wait: 5s
session:
  backend: sqlite
  path: /tmp/fxremit.db
`), 0600))

	cfg, err := loadConfig(path, true, func(key string) string {
		if key == "FXREMIT_API_KEY" {
			return "from-env"
		}
		return ""
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 2.0, cfg.RatePerSecond)
	assert.Equal(t, 5, cfg.Burst)
	assert.Equal(t, "from-env", cfg.APIKey)
	require.NotNil(t, cfg.Retry)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.RetryWait)
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	assert.Equal(t, "/tmp/fxremit.db", cfg.Session.Path)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"FXREMIT_TIMEOUT":         "45s",
		"FXREMIT_SESSION_BACKEND": "memory",
	}
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false, func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "memory", cfg.Session.Backend)

	env["FXREMIT_TIMEOUT"] = "soon"
	_, err = loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false, func(k string) string { return env[k] })
	assert.Error(t, err)
}
