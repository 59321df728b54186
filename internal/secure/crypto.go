package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Crypter seals data with AES-256-GCM, the nonce is prepended to the output
type Crypter struct {
	aead cipher.AEAD
}

// NewCrypter uses the first 32 bytes of key
func NewCrypter(key string) (*Crypter, error) {
	k := []byte(key)
	if l := len(k); l < 32 {
		return nil, fmt.Errorf("key length must be >= 32 bytes, got %d", l)
	}
	block, err := aes.NewCipher(k[:32])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Crypter{aead: aead}, nil
}

// Encrypt seals data, associated data binds the result to a key
func (c *Crypter) Encrypt(data, associated []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(data)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, data, associated), nil
}

// Decrypt opens data produced by Encrypt with the same associated data
func (c *Crypter) Decrypt(data, associated []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(data) < ns {
		return nil, fmt.Errorf("ciphertext too short")
	}
	return c.aead.Open(nil, data[:ns], data[ns:], associated)
}
