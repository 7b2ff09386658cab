// Package export writes the persisted client state to a passphrase-protected
// file and reads it back, so a plan can be moved between devices without
// going through the server.
package export

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"

	"github.com/hollowoak/larder/internal/store"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// Write serializes the projection and writes it to path encrypted with a key
// derived from the passphrase. File format: 16-byte salt, 12-byte nonce,
// AES-256-GCM ciphertext.
func Write(path string, p store.Projection, passphrase string) error {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Read decrypts an exported file and returns the projection it holds. A
// wrong passphrase or a tampered file fails authentication and returns an
// error.
func Read(path, passphrase string) (store.Projection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Projection{}, fmt.Errorf("read export: %w", err)
	}
	if len(data) < saltSize+nonceSize {
		return store.Projection{}, fmt.Errorf("export file too small")
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return store.Projection{}, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return store.Projection{}, fmt.Errorf("decrypt export: %w", err)
	}

	var p store.Projection
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return store.Projection{}, fmt.Errorf("decode state: %w", err)
	}
	return p, nil
}

// deriveKey stretches the passphrase into an AES-256 key with Argon2id.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
