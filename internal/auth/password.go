package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned when a stored hash is not in the encoded argon2id format
var ErrInvalidHash = errors.New("invalid hash format")

const (
	saltLength = 16
	keyLength  = 32
)

// Argon2Params holds Argon2id cost parameters
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns 64 MiB memory, 3 iterations, parallelism 4
func DefaultParams() *Argon2Params {
	return &Argon2Params{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}
}

// NewParams creates custom Argon2id parameters. Zero values fall back to the defaults.
func NewParams(memory, iterations uint32, parallelism uint8) *Argon2Params {
	p := DefaultParams()
	if memory != 0 {
		p.Memory = memory
	}
	if iterations != 0 {
		p.Iterations = iterations
	}
	if parallelism != 0 {
		p.Parallelism = parallelism
	}
	return p
}

func (p *Argon2Params) key(password string, salt []byte, length uint32) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, length)
}

// phc is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string
type phc struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func (h phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key))
}

func parsePHC(encoded string) (phc, error) {
	var h phc

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return h, ErrInvalidHash
	}
	if parts[1] != "argon2id" {
		return h, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Iterations, &h.params.Parallelism); err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return h, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return h, fmt.Errorf("%w: key: %v", ErrInvalidHash, err)
	}
	return h, nil
}

// HashPassword derives an encoded Argon2id hash with a fresh random salt
func HashPassword(password string, params *Argon2Params) (string, error) {
	if params == nil {
		params = DefaultParams()
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	return phc{params: *params, salt: salt, key: params.key(password, salt, keyLength)}.String(), nil
}

// VerifyPassword reports whether password matches the encoded hash
func VerifyPassword(password, encodedHash string) (bool, error) {
	h, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	candidate := h.params.key(password, h.salt, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(h.key, candidate) == 1, nil
}

// NeedsRehash reports whether encodedHash was produced with parameters other than want
func NeedsRehash(encodedHash string, want *Argon2Params) bool {
	h, err := parsePHC(encodedHash)
	if err != nil {
		return true
	}
	return h.params != *want || len(h.key) != keyLength
}
