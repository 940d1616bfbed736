package handler

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/storage"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
	"github.com/yndnr/shadowhome-go/pkg/sigverify"
)

// mockWallet implements Wallet for testing.
type mockWallet struct {
	mu   sync.Mutex
	snap domain.Snapshot
	err  error
	subs []chan domain.Snapshot
}

func newMockWallet() *mockWallet {
	return &mockWallet{snap: domain.Snapshot{State: domain.StateDisconnected}}
}

func (m *mockWallet) set(snap domain.Snapshot, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap, m.err = snap, err
}

func (m *mockWallet) publish(snap domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	for _, ch := range m.subs {
		ch <- snap
	}
}

func (m *mockWallet) Snapshot() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockWallet) Subscribe() (<-chan domain.Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan domain.Snapshot, 4)
	ch <- m.snap
	m.subs = append(m.subs, ch)
	return ch, func() {}
}

func (m *mockWallet) result() (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.err
}

func (m *mockWallet) Connect(context.Context) (domain.Snapshot, error)      { return m.result() }
func (m *mockWallet) Authenticate(context.Context) (domain.Snapshot, error) { return m.result() }
func (m *mockWallet) Disconnect(context.Context) (domain.Snapshot, error)   { return m.result() }

// mockProvider is the minimum a Locator needs to return.
type mockProvider struct {
	service.Provider
	recognized bool
}

func (p *mockProvider) IsRecognized() bool { return p.recognized }

// failingJournal always fails to list.
type failingJournal struct{}

func (failingJournal) List(context.Context, int) ([]storage.Entry, error) {
	return nil, io.ErrUnexpectedEOF
}

var fixedNow = time.Date(2024, 5, 1, 12, 30, 45, 123_000_000, time.UTC)

func quietLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Output: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func setupTestHandler(t *testing.T, mutate func(*Config)) (*Handler, *mockWallet) {
	t.Helper()
	wallet := newMockWallet()
	cfg := Config{
		Wallet: wallet,
		Logger: quietLogger(t),
		Now:    func() time.Time { return fixedNow },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), wallet
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid envelope %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

// decodeData re-decodes the envelope's data or details field into out.
func decodeData(t *testing.T, v any, out any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func connectedSnapshot(id domain.Identity) domain.Snapshot {
	return domain.Snapshot{State: domain.StateConnected, Identity: id, IsConnected: true, Version: 3}
}

func TestHandler_GetWallet(t *testing.T) {
	h, wallet := setupTestHandler(t, nil)
	wallet.set(connectedSnapshot("Acct111"), nil)

	rec, resp := doRequest(t, h, "GET", "/v1/wallet", nil)
	if rec.Code != http.StatusOK || resp.Code != "OK" {
		t.Fatalf("status = %d, code = %s", rec.Code, resp.Code)
	}

	var body map[string]any
	decodeData(t, resp.Data, &body)
	if body["state"] != "connected" || body["identity"] != "Acct111" {
		t.Errorf("data = %v", body)
	}
	if body["can_access_dashboard"] != false {
		t.Errorf("can_access_dashboard = %v, want false", body["can_access_dashboard"])
	}
}

func TestHandler_Operations(t *testing.T) {
	authenticated := domain.Snapshot{
		State:           domain.StateAuthenticated,
		Identity:        "Acct111",
		IsConnected:     true,
		IsAuthenticated: true,
		Auth:            &domain.Authentication{Signature: []byte{1}},
	}

	tests := []struct {
		name       string
		path       string
		snap       domain.Snapshot
		err        error
		wantStatus int
		wantCode   string
		wantState  string
	}{
		{"connect ok", "/v1/wallet/connect", authenticated, nil, http.StatusOK, "OK", "authenticated"},
		{"connect refused signature", "/v1/wallet/connect", connectedSnapshot("Acct111"),
			domain.ErrAuthenticationFailed.WithDetails("User rejected the request."),
			http.StatusUnauthorized, domain.CodeAuthenticationFailed, "connected"},
		{"connect without provider", "/v1/wallet/connect", domain.Snapshot{},
			domain.ErrProviderUnavailable, http.StatusServiceUnavailable, domain.CodeProviderUnavailable, "disconnected"},
		{"connect failed", "/v1/wallet/connect", domain.Snapshot{},
			domain.ErrConnectionFailed, http.StatusBadGateway, domain.CodeConnectionFailed, "disconnected"},
		{"authenticate busy", "/v1/wallet/authenticate", connectedSnapshot("Acct111"),
			domain.ErrOperationInProgress, http.StatusConflict, domain.CodeOperationInProgress, "connected"},
		{"authenticate stale", "/v1/wallet/authenticate", connectedSnapshot("Acct222"),
			domain.ErrStaleOperation, http.StatusConflict, domain.CodeStaleOperation, "connected"},
		{"authenticate not connected", "/v1/wallet/authenticate", domain.Snapshot{},
			domain.ErrNotConnected, http.StatusBadRequest, domain.CodeNotConnected, "disconnected"},
		{"disconnect ok", "/v1/wallet/disconnect", domain.Snapshot{}, nil, http.StatusOK, "OK", "disconnected"},
		{"disconnect provider error", "/v1/wallet/disconnect", domain.Snapshot{},
			domain.ErrDisconnectFailed, http.StatusBadGateway, domain.CodeDisconnectFailed, "disconnected"},
		{"caller gave up", "/v1/wallet/connect", domain.Snapshot{},
			context.DeadlineExceeded, http.StatusGatewayTimeout, domain.ErrWaitTimeout.Code, "disconnected"},
		{"internal", "/v1/wallet/connect", domain.Snapshot{},
			io.ErrUnexpectedEOF, http.StatusInternalServerError, "SH-SYS-5000", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, wallet := setupTestHandler(t, nil)
			wallet.set(tt.snap, tt.err)

			rec, resp := doRequest(t, h, "POST", tt.path, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if tt.err != nil && rec.Header().Get("X-Error-Code") != tt.wantCode {
				t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
			}

			if tt.wantState == "" {
				return
			}
			payload := resp.Data
			if tt.err != nil {
				payload = resp.Details
			}
			var body map[string]any
			decodeData(t, payload, &body)
			if body["state"] != tt.wantState {
				t.Errorf("state = %v, want %s", body["state"], tt.wantState)
			}
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h, _ := setupTestHandler(t, nil)
	req := httptest.NewRequest("GET", "/v1/wallet/connect", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandler_ListEvents(t *testing.T) {
	journal := storage.NewMemoryJournal(10)
	ctx := context.Background()
	journal.Append(ctx, storage.Entry{Op: "connect", From: domain.StateDisconnected, To: domain.StateConnecting})
	journal.Append(ctx, storage.Entry{Op: "connect", From: domain.StateConnecting, To: domain.StateConnected, Identity: "Acct111"})
	journal.Append(ctx, storage.Entry{Op: "authenticate", From: domain.StateAuthenticating, To: domain.StateConnected,
		Identity: "Acct111", Code: domain.CodeAuthenticationFailed, Message: "User rejected the request."})

	h, _ := setupTestHandler(t, func(c *Config) { c.Journal = journal })

	t.Run("newest first", func(t *testing.T) {
		rec, resp := doRequest(t, h, "GET", "/v1/wallet/events", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body EventsResponse
		decodeData(t, resp.Data, &body)
		if body.Total != 3 || len(body.Items) != 3 {
			t.Fatalf("got %d items", len(body.Items))
		}
		first := body.Items[0]
		if first.Op != "authenticate" || first.To != "connected" || first.Code != domain.CodeAuthenticationFailed {
			t.Errorf("first item = %+v", first)
		}
		if first.ID == "" || first.At.IsZero() {
			t.Errorf("first item missing id/time: %+v", first)
		}
	})

	t.Run("limit", func(t *testing.T) {
		_, resp := doRequest(t, h, "GET", "/v1/wallet/events?limit=2", nil)
		var body EventsResponse
		decodeData(t, resp.Data, &body)
		if len(body.Items) != 2 {
			t.Errorf("got %d items, want 2", len(body.Items))
		}
	})

	for _, bad := range []string{"0", "-1", "abc", "100000"} {
		t.Run("bad limit "+bad, func(t *testing.T) {
			rec, resp := doRequest(t, h, "GET", "/v1/wallet/events?limit="+bad, nil)
			if rec.Code != http.StatusBadRequest || resp.Code != domain.ErrInvalidArgument.Code {
				t.Errorf("status = %d, code = %s", rec.Code, resp.Code)
			}
		})
	}
}

func TestHandler_ListEvents_Unavailable(t *testing.T) {
	h, _ := setupTestHandler(t, nil)
	rec, resp := doRequest(t, h, "GET", "/v1/wallet/events", nil)
	if rec.Code != http.StatusServiceUnavailable || resp.Code != domain.ErrServiceUnavailable.Code {
		t.Errorf("status = %d, code = %s", rec.Code, resp.Code)
	}

	h, _ = setupTestHandler(t, func(c *Config) { c.Journal = failingJournal{} })
	rec, resp = doRequest(t, h, "GET", "/v1/wallet/events", nil)
	if rec.Code != http.StatusInternalServerError || resp.Code != domain.ErrStorageError.Code {
		t.Errorf("status = %d, code = %s", rec.Code, resp.Code)
	}
}

func TestHandler_Challenge(t *testing.T) {
	h, _ := setupTestHandler(t, nil)
	_, resp := doRequest(t, h, "GET", "/v1/wallet/challenge", nil)

	var body ChallengeResponse
	decodeData(t, resp.Data, &body)
	want := domain.DefaultChallengeGreeting + "\n\nTimestamp: 2024-05-01T12:30:45.123Z"
	if body.Message != want {
		t.Errorf("message = %q, want %q", body.Message, want)
	}
	if body.Encoding != "utf8" {
		t.Errorf("encoding = %q", body.Encoding)
	}

	h, _ = setupTestHandler(t, func(c *Config) { c.ChallengeGreeting = "Hello, home." })
	_, resp = doRequest(t, h, "GET", "/v1/wallet/challenge", nil)
	decodeData(t, resp.Data, &body)
	if !strings.HasPrefix(body.Message, "Hello, home.\n\nTimestamp: ") {
		t.Errorf("message = %q", body.Message)
	}
}

func TestHandler_Verify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	message := domain.NewChallenge("", fixedNow).Message
	sig := ed25519.Sign(priv, []byte(message))
	identity := sigverify.EncodePublicKey(pub)

	h, _ := setupTestHandler(t, nil)

	tests := []struct {
		name string
		req  VerifyRequest
		want bool
	}{
		{"valid", VerifyRequest{sigverify.EncodeSignature(sig), message, identity}, true},
		{"other message", VerifyRequest{sigverify.EncodeSignature(sig), message + " ", identity}, false},
		{"bad identity", VerifyRequest{sigverify.EncodeSignature(sig), message, "not-a-key"}, false},
		{"bad signature", VerifyRequest{"zzz", message, identity}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := doRequest(t, h, "POST", "/v1/signatures/verify", tt.req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var body VerifyResponse
			decodeData(t, resp.Data, &body)
			if body.Valid != tt.want {
				t.Errorf("valid = %t, want %t", body.Valid, tt.want)
			}
		})
	}

	t.Run("missing fields", func(t *testing.T) {
		rec, resp := doRequest(t, h, "POST", "/v1/signatures/verify", VerifyRequest{Message: message})
		if rec.Code != http.StatusBadRequest || resp.Code != domain.ErrMissingArgument.Code {
			t.Errorf("status = %d, code = %s", rec.Code, resp.Code)
		}
		var details map[string][]string
		decodeData(t, resp.Details, &details)
		if strings.Join(details["missing"], ",") != "signature,identity" {
			t.Errorf("details = %v", details)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/signatures/verify", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestHandler_Health(t *testing.T) {
	h, _ := setupTestHandler(t, nil)
	rec, resp := doRequest(t, h, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body HealthResponse
	decodeData(t, resp.Data, &body)
	if body.Status != "healthy" || body.Build.Version == "" || body.Build.GoVersion == "" {
		t.Errorf("health = %+v", body)
	}
}

func TestHandler_Ready(t *testing.T) {
	tests := []struct {
		name     string
		locator  service.Locator
		journal  EventLister
		wantProv bool
	}{
		{"no locator", nil, nil, false},
		{"provider missing", service.LocatorFunc(func() (service.Provider, bool) { return nil, false }), nil, false},
		{"unrecognized provider", service.StaticLocator(&mockProvider{}), nil, false},
		{"provider present", service.StaticLocator(&mockProvider{recognized: true}), storage.NewMemoryJournal(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupTestHandler(t, func(c *Config) {
				c.Locator = tt.locator
				c.Journal = tt.journal
			})
			rec, resp := doRequest(t, h, "GET", "/ready", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var body ReadyResponse
			decodeData(t, resp.Data, &body)
			if body.ProviderAvailable != tt.wantProv || body.State != "disconnected" {
				t.Errorf("ready = %+v", body)
			}
			if body.Journal != (tt.journal != nil) {
				t.Errorf("journal = %t", body.Journal)
			}
		})
	}
}

func TestHandler_Stream(t *testing.T) {
	h, wallet := setupTestHandler(t, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/wallet/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frame StreamFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if frame.Type != "snapshot" || frame.Data.State != domain.StateDisconnected {
		t.Errorf("first frame = %+v", frame)
	}

	wallet.publish(connectedSnapshot("Acct111"))
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if frame.Data.State != domain.StateConnected || frame.Data.Identity != "Acct111" {
		t.Errorf("second frame = %+v", frame)
	}
}

func TestHandler_StreamOrigin(t *testing.T) {
	h, _ := setupTestHandler(t, func(c *Config) { c.StreamOrigins = []string{"https://home.example"} })
	srv := httptest.NewServer(h)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/wallet/stream"

	header := http.Header{"Origin": {"https://evil.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("foreign origin was accepted")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v", resp)
	}

	header.Set("Origin", "https://home.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("listed origin rejected: %v", err)
	}
	conn.Close()
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.CodeProviderUnavailable, http.StatusServiceUnavailable},
		{domain.CodeConnectionFailed, http.StatusBadGateway},
		{domain.CodeDisconnectFailed, http.StatusBadGateway},
		{domain.CodeAuthenticationFailed, http.StatusUnauthorized},
		{domain.CodeNotConnected, http.StatusBadRequest},
		{domain.CodeOperationInProgress, http.StatusConflict},
		{domain.CodeStaleOperation, http.StatusConflict},
		{"SH-ARG-1001", http.StatusBadRequest},
		{"SH-SYS-4290", http.StatusTooManyRequests},
		{"SH-SYS-4010", http.StatusUnauthorized},
		{"SH-SYS-5040", http.StatusGatewayTimeout},
		{"SH-SYS-5000", http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := ErrorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
