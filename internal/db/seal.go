package db

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
)

const (
	nonceSize = 24
	sealSalt  = "ora-scrum-client/token-store/v1"
)

var ErrUnseal = errors.New("failed to unseal stored value")

// Sealed encrypts values before they reach the wrapped storage. The key is
// derived from secret with argon2id; each value gets a fresh random nonce.
type Sealed struct {
	inner apiclient.Storage
	key   [32]byte
}

func NewSealed(inner apiclient.Storage, secret string) *Sealed {
	s := &Sealed{inner: inner}
	derived := argon2.IDKey([]byte(secret), []byte(sealSalt), 1, 64*1024, 4, 32)
	copy(s.key[:], derived)
	return s
}

func (s *Sealed) Get(ctx context.Context, name string) (string, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, name)
	if err != nil || !ok {
		return "", ok, err
	}
	value, err := s.open(sealed)
	if err != nil {
		return "", false, fmt.Errorf("%w %s: %v", ErrUnseal, name, err)
	}
	return value, true, nil
}

func (s *Sealed) Set(ctx context.Context, values map[string]string) error {
	sealed := make(map[string]string, len(values))
	for name, value := range values {
		box, err := s.seal(value)
		if err != nil {
			return fmt.Errorf("failed to seal %s: %w", name, err)
		}
		sealed[name] = box
	}
	return s.inner.Set(ctx, sealed)
}

func (s *Sealed) Delete(ctx context.Context, names ...string) error {
	return s.inner.Delete(ctx, names...)
}

func (s *Sealed) seal(value string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *Sealed) open(encoded string) (string, error) {
	box, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", errors.New("sealed value too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errors.New("authentication failed")
	}
	return string(plain), nil
}
