package cipher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fernet/fernet-go"
)

var (
	// ErrDecryption is returned for tampered, truncated or wrong-key ciphertext.
	ErrDecryption = errors.New("decryption failed")
	// ErrInvalidKey is returned by New for keys that do not decode to 32 bytes.
	ErrInvalidKey = errors.New("invalid cipher key")
)

// Cipher encrypts and decrypts with a single process-wide key. It is
// immutable and safe for concurrent use.
type Cipher struct {
	key  *fernet.Key
	keys []*fernet.Key
}

// New builds a Cipher from a Fernet key (URL-safe or standard base64, or hex).
func New(key string) (*Cipher, error) {
	k, err := fernet.DecodeKey(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Cipher{key: k, keys: []*fernet.Key{k}}, nil
}

// GenerateKey returns a fresh random key in the encoding New accepts.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}

// Encrypt seals plaintext. The result is ASCII and safe to store as a string.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	if c == nil || c.key == nil {
		return nil, ErrInvalidKey
	}
	return fernet.EncryptAndSign(plaintext, c.key)
}

// Decrypt opens ciphertext produced by Encrypt with the same key. Any
// authentication failure returns ErrDecryption.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if c == nil || c.key == nil {
		return nil, ErrInvalidKey
	}
	if len(ciphertext) == 0 {
		return nil, ErrDecryption
	}
	// ttl 0: lifetime is enforced by the store TTL and the token's own exp.
	msg := fernet.VerifyAndDecrypt(ciphertext, 0, c.keys)
	if msg == nil {
		return nil, ErrDecryption
	}
	return msg, nil
}

// EncryptString is Encrypt for string payloads.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	out, err := c.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DecryptString is Decrypt for string payloads.
func (c *Cipher) DecryptString(ciphertext string) (string, error) {
	out, err := c.Decrypt([]byte(ciphertext))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
