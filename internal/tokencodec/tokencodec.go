// Package tokencodec implements the first-party proxy URL token: an
// unforgeable, URL-safe encoding of an arbitrary third-party URL that can be
// embedded in public HTML (as the `u` query parameter of
// /first-party/proxy) and decoded back by the gateway that minted it.
package tokencodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidToken is returned by Decode when the token cannot be decoded or
// fails authentication under the current secret.
var ErrInvalidToken = errors.New("tokencodec: invalid token")

// Codec encodes and decodes proxy URL tokens using AES-GCM sealed under a
// key derived from the process-wide proxy secret. AEAD is the natural
// generalization of an HMAC-signed envelope when only unforgeability (not
// ciphertext determinism) is required — see DESIGN.md.
type Codec struct {
	aead cipher.AEAD
}

// New builds a Codec from the raw proxy secret. The secret is stretched to
// a 32-byte AES-256 key; callers should pass a high-entropy secret (the
// gateway's Settings.Publisher.ProxySecret).
func New(secret string) (*Codec, error) {
	key := deriveKey(secret)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("tokencodec: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("tokencodec: new gcm: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encode seals u into a URL-safe, unpadded base64 token: nonce || ciphertext.
func (c *Codec) Encode(u string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("tokencodec: read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(u), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode recovers the URL sealed in token. It returns ErrInvalidToken if the
// token is malformed, was not produced by Encode under this codec's secret,
// or has been tampered with.
func (c *Codec) Decode(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrInvalidToken
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(plain), nil
}

// deriveKey stretches an arbitrary-length secret into a 32-byte AES-256 key
// via SHA-256, so operators can configure a human-chosen proxy_secret
// instead of managing raw key material.
func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
