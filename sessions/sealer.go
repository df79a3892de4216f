package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "enc:v1:"
	nonceSize    = 24
	keySize      = 32
)

var hkdfSalt = []byte("cartcash/session-snapshot")

// Sealer protects token fields in the persisted snapshot.
type Sealer interface {
	Seal(plaintext string) (string, error)
	// Open returns values without the sealed prefix unchanged.
	Open(value string) (string, error)
}

type secretboxSealer struct {
	key [keySize]byte
}

var _ Sealer = (*secretboxSealer)(nil)

// NewSecretboxSealer derives a key from passphrase with HKDF-SHA256.
func NewSecretboxSealer(passphrase string) (Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("[NewSecretboxSealer] empty passphrase")
	}
	s := &secretboxSealer{}
	kdf := hkdf.New(sha256.New, []byte(passphrase), hkdfSalt, []byte("tokens"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, errors.Wrap(err, "[NewSecretboxSealer] derive key")
	}
	return s, nil
}

func (s *secretboxSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" || strings.HasPrefix(plaintext, sealedPrefix) {
		return plaintext, nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", errors.Wrap(err, "[secretboxSealer.Seal] nonce")
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *secretboxSealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	box, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", errors.Wrap(err, "[secretboxSealer.Open] decode")
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", errors.New("[secretboxSealer.Open] sealed value too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errors.New("[secretboxSealer.Open] authentication failed")
	}
	return string(plain), nil
}

// sealRecord returns a copy of r with its secrets sealed.
func sealRecord(s Sealer, r *Record) (*Record, error) {
	c := r.Clone()
	if s == nil {
		return c, nil
	}
	var err error
	if c.AccessToken, err = s.Seal(c.AccessToken); err != nil {
		return nil, err
	}
	if c.Config != nil {
		if c.Config.AccessToken, err = s.Seal(c.Config.AccessToken); err != nil {
			return nil, err
		}
		if c.Config.AppSecret, err = s.Seal(c.Config.AppSecret); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// openRecord reverses sealRecord in place. Without a sealer a sealed value
// cannot be read and the record is rejected.
func openRecord(s Sealer, r *Record) error {
	fields := []*string{&r.AccessToken}
	if r.Config != nil {
		fields = append(fields, &r.Config.AccessToken, &r.Config.AppSecret)
	}
	for _, f := range fields {
		if s == nil {
			if strings.HasPrefix(*f, sealedPrefix) {
				return errors.New("sealed snapshot but no encryption key configured")
			}
			continue
		}
		plain, err := s.Open(*f)
		if err != nil {
			return err
		}
		*f = plain
	}
	return nil
}
