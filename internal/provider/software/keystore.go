// Package software implements an in-process ed25519 wallet.
package software

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/pkg/crypto/adaptive"
)

// KeystoreVersion is the current keystore file format.
const KeystoreVersion = 1

// keystoreAAD binds ciphertexts to this file format.
var keystoreAAD = []byte("shadowhome-keystore-v1")

// ErrWrongPassphrase is returned when the keystore cannot be decrypted.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted keystore")

// KeystoreInfo is the unencrypted part of a keystore file.
type KeystoreInfo struct {
	Version   int                 `json:"version"`
	Cipher    adaptive.CipherType `json:"cipher"`
	KDF       string              `json:"kdf"`
	KDFParams adaptive.KDFParams  `json:"kdf_params"`
	Accounts  []domain.Identity   `json:"accounts"`
	CreatedAt time.Time           `json:"created_at"`
}

type keystoreFile struct {
	KeystoreInfo
	Salt       []byte `json:"salt"`
	Ciphertext []byte `json:"ciphertext"`
}

type keystoreSecret struct {
	Seeds  [][]byte `json:"seeds"`
	Active int      `json:"active"`
}

// SaveKeystore encrypts the wallet's seeds under passphrase and writes them
// to path with mode 0600. The file is replaced atomically.
func SaveKeystore(path string, passphrase []byte, w *Wallet, params adaptive.KDFParams) error {
	if len(passphrase) == 0 {
		return errors.New("keystore passphrase is empty")
	}

	secret, err := json.Marshal(keystoreSecret{Seeds: w.seeds(), Active: w.Active()})
	if err != nil {
		return err
	}

	salt, err := adaptive.NewSalt()
	if err != nil {
		return err
	}
	c, err := adaptive.New(adaptive.DeriveKey(passphrase, salt, params))
	if err != nil {
		return err
	}
	sealed, err := c.Encrypt(secret, keystoreAAD)
	if err != nil {
		return fmt.Errorf("encrypt keystore: %w", err)
	}

	file := keystoreFile{
		KeystoreInfo: KeystoreInfo{
			Version:   KeystoreVersion,
			Cipher:    c.Type(),
			KDF:       "argon2id",
			KDFParams: params,
			Accounts:  w.Accounts(),
			CreatedAt: time.Now().UTC(),
		},
		Salt:       salt,
		Ciphertext: sealed,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadKeystore decrypts the keystore at path and builds a Wallet from it.
func LoadKeystore(path string, passphrase []byte, opts ...Option) (*Wallet, error) {
	file, err := readKeystore(path)
	if err != nil {
		return nil, err
	}
	if file.KDF != "argon2id" {
		return nil, fmt.Errorf("unsupported keystore kdf %q", file.KDF)
	}

	typ, err := adaptive.ParseCipherType(string(file.Cipher))
	if err != nil {
		return nil, err
	}
	c, err := adaptive.NewWithType(adaptive.DeriveKey(passphrase, file.Salt, file.KDFParams), typ)
	if err != nil {
		return nil, err
	}
	plain, err := c.Decrypt(file.Ciphertext, keystoreAAD)
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	var secret keystoreSecret
	if err := json.Unmarshal(plain, &secret); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	w, err := New(secret.Seeds, opts...)
	if err != nil {
		return nil, err
	}
	if secret.Active > 0 && secret.Active < len(secret.Seeds) {
		w.active = secret.Active
	}
	return w, nil
}

// ReadKeystoreInfo returns the public part of a keystore without decrypting it.
func ReadKeystoreInfo(path string) (*KeystoreInfo, error) {
	file, err := readKeystore(path)
	if err != nil {
		return nil, err
	}
	return &file.KeystoreInfo, nil
}

func readKeystore(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file keystoreFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse keystore %s: %w", path, err)
	}
	if file.Version != KeystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", file.Version)
	}
	return &file, nil
}
