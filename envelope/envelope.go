/*
Package envelope implements the wire format of off-chain job contents.

An envelope is a 24-byte nonce followed by the body. Zero nonce marks a
plaintext body, any other nonce means the body is XChaCha20-Poly1305
ciphertext with the authentication tag sealed by the session key.
*/
package envelope

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the size of the envelope header.
const NonceSize = chacha20poly1305.NonceSizeX

// KeySize is the size of the session key.
const KeySize = chacha20poly1305.KeySize

var (
	// ErrEmptyData is returned on attempt to encrypt empty message.
	ErrEmptyData = errors.New("empty data")
	// ErrMissingSessionKey is returned when encrypted envelope is opened
	// without a session key.
	ErrMissingSessionKey = errors.New("missing session key")
	// ErrDecryption is returned when ciphertext can't be authenticated with
	// the given key.
	ErrDecryption = errors.New("decryption failed")
	// ErrInvalidKey is returned for session keys of wrong size.
	ErrInvalidKey = errors.New("invalid session key")
)

var zeroNonce [NonceSize]byte

// Seal wraps the message into an envelope. Nil key produces plaintext
// envelope with zero nonce, otherwise a random nonce is generated and the
// message is encrypted.
func Seal(msg []byte, key []byte) ([]byte, error) {
	if len(msg) == 0 {
		return nil, ErrEmptyData
	}

	if key == nil {
		res := make([]byte, NonceSize, NonceSize+len(msg))
		return append(res, msg...), nil
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	res := make([]byte, NonceSize, NonceSize+len(msg)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, res); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(res, res[:NonceSize], msg, nil), nil
}

// Open unwraps the envelope. Plaintext envelopes are returned as is
// regardless of the key. Encrypted envelopes fail with ErrMissingSessionKey
// if key is nil and with ErrDecryption if the authentication fails.
func Open(data []byte, key []byte) ([]byte, error) {
	if len(data) < NonceSize {
		return nil, fmt.Errorf("%w: envelope of %d bytes is shorter than nonce", ErrDecryption, len(data))
	}

	nonce, body := data[:NonceSize], data[NonceSize:]
	if bytes.Equal(nonce, zeroNonce[:]) {
		return bytes.Clone(body), nil
	}
	if key == nil {
		return nil, ErrMissingSessionKey
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	res, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return res, nil
}

// Encrypted checks whether the envelope carries a ciphertext.
func Encrypted(data []byte) bool {
	return len(data) >= NonceSize && !bytes.Equal(data[:NonceSize], zeroNonce[:])
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return chacha20poly1305.NewX(key)
}
