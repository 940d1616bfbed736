package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/provider/software"
	"github.com/yndnr/shadowhome-go/internal/server/httpserver/handler"
	"github.com/yndnr/shadowhome-go/internal/storage"
	"github.com/yndnr/shadowhome-go/internal/telemetry/metric"
	"github.com/yndnr/shadowhome-go/pkg/sigverify"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(ln.Addr().String(), okHandler, WithLogger(quietLogger(t)))
	if s.TLS() {
		t.Error("TLS() = true without a key pair")
	}

	errChan := make(chan error, 1)
	go func() { errChan <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Serve returned %v after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for Serve to return")
	}
}

// testStack is a router over a real wallet session and software wallet.
type testStack struct {
	srv     *httptest.Server
	wallet  *software.Wallet
	session *service.WalletSession
	metrics *metric.Registry
	journal *storage.MemoryJournal
}

func newTestStack(t *testing.T, token string) *testStack {
	t.Helper()
	l := quietLogger(t)

	wallet, err := software.Generate(1, software.WithLogger(l))
	if err != nil {
		t.Fatal(err)
	}
	reg := metric.NewRegistry()
	journal := storage.NewMemoryJournal(100)
	locator := service.StaticLocator(wallet)

	session := service.NewWalletSession(locator, nil,
		service.WithLogger(l),
		service.WithObserver(service.Observers{reg, storage.NewRecorder(journal, l)}),
	)
	t.Cleanup(func() { session.Close() })

	h := handler.New(handler.Config{
		Wallet:  session,
		Journal: journal,
		Locator: locator,
		Metrics: reg,
		Logger:  l,
	})
	router := NewRouter(&RouterConfig{
		Handler:     h,
		Metrics:     reg,
		MetricsPath: "/metrics",
		Logger:      l,
		AuthToken:   token,
		EnableAudit: true,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testStack{srv: srv, wallet: wallet, session: session, metrics: reg, journal: journal}
}

func (s *testStack) do(t *testing.T, method, path, token string) (*http.Response, handler.Response) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env handler.Response
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp, env
}

func TestRouter_WalletFlow(t *testing.T) {
	st := newTestStack(t, "")

	resp, env := st.do(t, "POST", "/v1/wallet/connect", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("connect status = %d, body code %s", resp.StatusCode, env.Code)
	}
	snap := st.session.Snapshot()
	if snap.State != domain.StateAuthenticated || !snap.CanAccessDashboard() {
		t.Fatalf("snapshot after connect = %+v", snap)
	}
	if !sigverify.Verify(snap.Auth.Signature, snap.Auth.Challenge.Bytes(), snap.Identity.String()) {
		t.Error("recorded signature does not verify")
	}

	resp, _ = st.do(t, "POST", "/v1/wallet/disconnect", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("disconnect status = %d", resp.StatusCode)
	}

	resp, _ = st.do(t, "POST", "/v1/wallet/authenticate", "")
	if resp.StatusCode != http.StatusBadRequest || resp.Header.Get("X-Error-Code") != domain.CodeNotConnected {
		t.Errorf("authenticate after disconnect: status = %d, code = %s",
			resp.StatusCode, resp.Header.Get("X-Error-Code"))
	}

	_, env = st.do(t, "GET", "/v1/wallet/events?limit=100", "")
	data, _ := json.Marshal(env.Data)
	var events handler.EventsResponse
	json.Unmarshal(data, &events)
	if events.Total < 5 {
		t.Errorf("journal holds %d entries, want the connect, authenticate and disconnect transitions", events.Total)
	}

	if got := testutil.ToFloat64(st.metrics.RequestsTotal.WithLabelValues("POST", "/v1/wallet/connect", "200")); got != 1 {
		t.Errorf("requests{connect,200} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(st.metrics.Operations.WithLabelValues("connect", "ok")); got != 1 {
		t.Errorf("operations{connect,ok} = %v, want 1", got)
	}
}

func TestRouter_Auth(t *testing.T) {
	st := newTestStack(t, "s3cret")

	if resp, _ := st.do(t, "GET", "/v1/wallet", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", resp.StatusCode)
	}
	if resp, _ := st.do(t, "GET", "/v1/wallet", "s3cret"); resp.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d", resp.StatusCode)
	}
	if resp, _ := st.do(t, "GET", "/health", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("health: status = %d", resp.StatusCode)
	}
	if resp, _ := st.do(t, "GET", "/metrics", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("metrics: status = %d", resp.StatusCode)
	}
}

func TestRouter_Stream(t *testing.T) {
	st := newTestStack(t, "s3cret")
	url := "ws" + strings.TrimPrefix(st.srv.URL, "http") + "/v1/wallet/stream"

	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated stream: err = %v, resp = %v", err, resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url+"?"+TokenQueryParam+"=s3cret", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frame handler.StreamFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatal(err)
	}
	if frame.Data.State != domain.StateDisconnected {
		t.Fatalf("first frame state = %s", frame.Data.State)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && testutil.ToFloat64(st.metrics.StreamClients) != 1 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := testutil.ToFloat64(st.metrics.StreamClients); got != 1 {
		t.Errorf("stream clients = %v, want 1", got)
	}

	if _, err := st.session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	for frame.Data.State != domain.StateAuthenticated {
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for authenticated frame: %v", err)
		}
	}
	if frame.Data.Identity.IsZero() || !frame.Data.CanAccessDashboard {
		t.Errorf("authenticated frame = %+v", frame.Data)
	}
}
