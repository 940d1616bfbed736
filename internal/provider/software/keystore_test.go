package software

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/shadowhome-go/pkg/crypto/adaptive"
)

// Cheap parameters keep the tests fast.
var testParams = adaptive.KDFParams{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestKeystore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "wallet.json")
	w, err := New([][]byte{seed(1), seed(2)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.SwitchAccount(1); err != nil {
		t.Fatal(err)
	}

	if err := SaveKeystore(path, []byte("hunter2"), w, testParams); err != nil {
		t.Fatalf("SaveKeystore() error = %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := st.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	loaded, err := LoadKeystore(path, []byte("hunter2"))
	if err != nil {
		t.Fatalf("LoadKeystore() error = %v", err)
	}
	want, got := w.Accounts(), loaded.Accounts()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Accounts() = %v, want %v", got, want)
	}
	if loaded.Active() != 1 {
		t.Errorf("Active() = %d, want 1", loaded.Active())
	}

	info, err := ReadKeystoreInfo(path)
	if err != nil {
		t.Fatalf("ReadKeystoreInfo() error = %v", err)
	}
	if info.KDF != "argon2id" || info.KDFParams != testParams || len(info.Accounts) != 2 {
		t.Errorf("info = %+v", info)
	}
}

func TestKeystore_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	w, _ := FromSeed(seed(3))
	if err := SaveKeystore(path, []byte("right"), w, testParams); err != nil {
		t.Fatalf("SaveKeystore() error = %v", err)
	}

	if _, err := LoadKeystore(path, []byte("wrong")); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("LoadKeystore() error = %v, want ErrWrongPassphrase", err)
	}
}

func TestKeystore_Errors(t *testing.T) {
	dir := t.TempDir()
	w, _ := FromSeed(seed(3))

	if err := SaveKeystore(filepath.Join(dir, "a.json"), nil, w, testParams); err == nil {
		t.Error("SaveKeystore() with empty passphrase should fail")
	}
	if _, err := LoadKeystore(filepath.Join(dir, "missing.json"), []byte("x")); !os.IsNotExist(err) {
		t.Errorf("LoadKeystore(missing) error = %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"version": 9}`), 0o600)
	if _, err := ReadKeystoreInfo(bad); err == nil {
		t.Error("ReadKeystoreInfo() should reject unknown versions")
	}

	garbage := filepath.Join(dir, "garbage.json")
	os.WriteFile(garbage, []byte(`not json`), 0o600)
	if _, err := LoadKeystore(garbage, []byte("x")); err == nil {
		t.Error("LoadKeystore() should reject garbage")
	}
}
