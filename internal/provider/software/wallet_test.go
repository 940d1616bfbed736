package software

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"testing"

	"golang.org/x/time/rate"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/pkg/sigverify"
)

func seed(b byte) []byte {
	return bytes.Repeat([]byte{b}, ed25519.SeedSize)
}

// eventLog records emitted events.
type eventLog struct {
	mu     sync.Mutex
	events []string
	last   any
}

func (l *eventLog) listen(w *Wallet) {
	for _, name := range []string{domain.EventNameConnect, domain.EventNameDisconnect, domain.EventNameAccountChanged} {
		name := name
		w.On(name, func(payload any) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.events = append(l.events, name)
			l.last = payload
		})
	}
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func TestNew(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoAccounts) {
		t.Errorf("New(nil) error = %v", err)
	}
	if _, err := New([][]byte{[]byte("short")}); err == nil {
		t.Error("New() with short seed should fail")
	}
	if _, err := Generate(0); !errors.Is(err, ErrNoAccounts) {
		t.Errorf("Generate(0) error = %v", err)
	}

	w, err := Generate(3)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	ids := w.Accounts()
	if len(ids) != 3 || ids[0] == ids[1] {
		t.Errorf("Accounts() = %v", ids)
	}
	for _, id := range ids {
		if _, err := sigverify.DecodePublicKey(id.String()); err != nil {
			t.Errorf("identity %q is not a base58 key: %v", id, err)
		}
	}
}

func TestFromSeed_Deterministic(t *testing.T) {
	a, _ := FromSeed(seed(1))
	b, _ := FromSeed(seed(1))
	if a.Accounts()[0] != b.Accounts()[0] {
		t.Error("same seed produced different identities")
	}
}

func TestWallet_ConnectSignDisconnect(t *testing.T) {
	w, err := FromSeed(seed(1))
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	var log eventLog
	log.listen(w)
	ctx := context.Background()

	if _, ok := w.PublicKey(); ok {
		t.Error("PublicKey() should be empty before connect")
	}
	if _, err := w.SignMessage(ctx, []byte("hi"), "utf8"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SignMessage() before connect error = %v", err)
	}

	id, err := w.Connect(ctx, service.ConnectOptions{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if key, ok := w.PublicKey(); !ok || key != id || !w.IsConnected() {
		t.Errorf("PublicKey() = %q, %t", key, ok)
	}

	msg := []byte("Welcome to ShadowHome Ledger OS!")
	signed, err := w.SignMessage(ctx, msg, domain.ChallengeEncoding)
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}
	if signed.Identity != id {
		t.Errorf("signed.Identity = %q, want %q", signed.Identity, id)
	}
	if !sigverify.Verify(signed.Signature, msg, id.String()) {
		t.Error("signature does not verify")
	}

	if err := w.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if err := w.Disconnect(ctx); err != nil {
		t.Fatalf("second Disconnect() error = %v", err)
	}
	if w.IsConnected() {
		t.Error("IsConnected() should be false")
	}

	want := []string{"connect", "disconnect"}
	if got := log.names(); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestWallet_OnlyIfTrusted(t *testing.T) {
	w, _ := FromSeed(seed(1))
	ctx := context.Background()

	if _, err := w.Connect(ctx, service.ConnectOptions{OnlyIfTrusted: true}); !errors.Is(err, ErrNotTrusted) {
		t.Fatalf("untrusted Connect() error = %v", err)
	}
	if _, err := w.Connect(ctx, service.ConnectOptions{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	_ = w.Disconnect(ctx)

	// Trusted now: no prompt needed even with a rejecting approver.
	w.approver = RejectAll()
	if _, err := w.Connect(ctx, service.ConnectOptions{OnlyIfTrusted: true}); err != nil {
		t.Fatalf("trusted Connect() error = %v", err)
	}

	w.Revoke()
	if _, err := w.Connect(ctx, service.ConnectOptions{OnlyIfTrusted: true}); !errors.Is(err, ErrNotTrusted) {
		t.Errorf("Connect() after Revoke error = %v", err)
	}
}

func TestWallet_Approver(t *testing.T) {
	var seen []RequestKind
	approver := ApproverFunc(func(ctx context.Context, req Request) error {
		seen = append(seen, req.Kind)
		if req.Kind == RequestSign {
			if req.Encoding != "utf8" {
				t.Errorf("Encoding = %q", req.Encoding)
			}
			return ErrUserRejected
		}
		return nil
	})
	w, _ := FromSeed(seed(1), WithApprover(approver))
	ctx := context.Background()

	if _, err := w.Connect(ctx, service.ConnectOptions{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	_, err := w.SignMessage(ctx, []byte("msg"), "utf8")
	if !errors.Is(err, ErrUserRejected) {
		t.Fatalf("SignMessage() error = %v", err)
	}
	if err.Error() != "User rejected the request." {
		t.Errorf("error text = %q", err.Error())
	}
	if len(seen) != 2 || seen[0] != RequestConnect || seen[1] != RequestSign {
		t.Errorf("approver saw %v", seen)
	}

	rejecting, _ := FromSeed(seed(2), WithApprover(RejectAll()))
	if _, err := rejecting.Connect(ctx, service.ConnectOptions{}); !errors.Is(err, ErrUserRejected) {
		t.Errorf("Connect() error = %v", err)
	}
	if rejecting.IsConnected() {
		t.Error("rejected wallet should stay disconnected")
	}
}

func TestWallet_AutoApproveHonoursContext(t *testing.T) {
	w, _ := FromSeed(seed(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Connect(ctx, service.ConnectOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v", err)
	}
}

func TestWallet_SignRateLimit(t *testing.T) {
	w, _ := FromSeed(seed(1), WithSignRate(rate.Limit(0.001), 2))
	ctx := context.Background()
	if _, err := w.Connect(ctx, service.ConnectOptions{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := w.SignMessage(ctx, []byte("m"), "utf8"); err != nil {
			t.Fatalf("SignMessage() #%d error = %v", i+1, err)
		}
	}
	if _, err := w.SignMessage(ctx, []byte("m"), "utf8"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("third SignMessage() error = %v", err)
	}
}

func TestWallet_SwitchAccount(t *testing.T) {
	w, _ := New([][]byte{seed(1), seed(2)})
	var log eventLog
	log.listen(w)
	ids := w.Accounts()

	// Not connected: no event.
	if err := w.SwitchAccount(1); err != nil {
		t.Fatalf("SwitchAccount() error = %v", err)
	}
	if len(log.names()) != 0 {
		t.Errorf("events = %v, want none", log.names())
	}

	id, _ := w.Connect(context.Background(), service.ConnectOptions{})
	if id != ids[1] {
		t.Errorf("Connect() = %q, want %q", id, ids[1])
	}

	if err := w.SwitchAccount(0); err != nil {
		t.Fatalf("SwitchAccount() error = %v", err)
	}
	names := log.names()
	if names[len(names)-1] != domain.EventNameAccountChanged {
		t.Errorf("events = %v", names)
	}
	log.mu.Lock()
	if log.last != ids[0] {
		t.Errorf("payload = %v, want %q", log.last, ids[0])
	}
	log.mu.Unlock()

	if err := w.SwitchAccount(5); err == nil {
		t.Error("SwitchAccount(5) should fail")
	}

	w.RemoveAllListeners()
	_ = w.SwitchAccount(1)
	if n := len(log.names()); n != len(names) {
		t.Error("listeners still called after RemoveAllListeners")
	}
}
