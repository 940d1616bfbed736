package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/shadowhome-go/internal/cli/config"
)

// mockServer creates a test HTTP server with custom handlers.
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
}

// newMockServer creates a new mock server. Handlers are keyed by
// "METHOD /path"; the query string is ignored.
func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Clone(context.Background()))
		h, ok := m.handlers[r.Method+" "+r.URL.Path]
		m.mu.Unlock()
		if !ok {
			errorResponse(w, http.StatusNotFound, "SH-SYS-4040", "not found", nil)
			return
		}
		h(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for "METHOD /path".
func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

func (m *mockServer) lastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// jsonResponse writes a success envelope.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       "OK",
		"message":    "Success",
		"request_id": "req-test",
		"timestamp":  time.Now().UnixMilli(),
		"data":       data,
	})
}

// errorResponse writes an error envelope.
func errorResponse(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "req-test",
		"timestamp":  time.Now().UnixMilli(),
		"details":    details,
	})
}

// cliResult is the captured output of one CLI run.
type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI runs the app against server with an isolated CLI config file.
// A nil server leaves --server unset.
func runCLI(t *testing.T, server *mockServer, args ...string) cliResult {
	t.Helper()
	for _, key := range []string{cliconfig.EnvServer, cliconfig.EnvToken, cliconfig.EnvCAFile, cliconfig.EnvInsecure, cliconfig.EnvOutput} {
		t.Setenv(key, "")
	}

	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := []string{"shadowhome-cli", "--config", filepath.Join(t.TempDir(), "cli.yaml")}
	if server != nil {
		full = append(full, "--server", server.URL)
	}
	full = append(full, args...)

	err := app.Run(full)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (r cliResult) mustContain(t *testing.T, want ...string) {
	t.Helper()
	if r.err != nil {
		t.Fatalf("run error = %v\nstderr: %s", r.err, r.stderr)
	}
	for _, w := range want {
		if !strings.Contains(r.stdout, w) {
			t.Errorf("stdout missing %q:\n%s", w, r.stdout)
		}
	}
}

// sampleWallet returns a wallet snapshot body as the server sends it.
func sampleWallet(state string) map[string]any {
	connected := state == "connected" || state == "authenticating" || state == "authenticated"
	body := map[string]any{
		"state":                state,
		"is_connected":         connected,
		"is_authenticated":     state == "authenticated",
		"can_access_dashboard": state == "authenticated",
		"loading":              state == "connecting" || state == "authenticating",
		"version":              3,
		"updated_at":           "2026-10-18T09:30:00Z",
	}
	if connected {
		body["identity"] = "7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2"
	}
	return body
}

// findSubcommand returns the named subcommand of cmd.
func findSubcommand(t *testing.T, cmd *cli.Command, name string) *cli.Command {
	t.Helper()
	for _, sub := range cmd.Subcommands {
		if sub.Name == name {
			return sub
		}
	}
	t.Fatalf("%s: missing subcommand %q", cmd.Name, name)
	return nil
}
