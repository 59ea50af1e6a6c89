package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"runtime"
)

// Sealer obfuscates records at rest with AES-GCM. It is not a substitute
// for an OS keychain; it keeps tokens out of plain-text files and keys.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer derives the key from secret, or from the local user and OS when
// secret is empty.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		secret = fmt.Sprintf("tictactoe-%s-%s", runtime.GOOS, os.Getenv("USER"))
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal returns base64(nonce || ciphertext).
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ct := s.gcm.Seal(nonce, nonce, plain, nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(ct)))
	base64.StdEncoding.Encode(out, ct)
	return out, nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(sealed)))
	n, err := base64.StdEncoding.Decode(raw, sealed)
	if err != nil {
		return nil, fmt.Errorf("decode sealed credentials: %w", err)
	}
	raw = raw[:n]
	if len(raw) < s.gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce := raw[:s.gcm.NonceSize()]
	return s.gcm.Open(nil, nonce, raw[s.gcm.NonceSize():], nil)
}
