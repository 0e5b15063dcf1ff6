package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// AlgorithmArgon2id tags records produced by Argon2idHasher
const AlgorithmArgon2id = "argon2id"

// Argon2idHasher derives keys with Argon2id. Records are encoded as
// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<parallelism>$<salt>$<key>
type Argon2idHasher struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// NewArgon2idHasher returns a hasher with the default parameters
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (h *Argon2idHasher) Algorithm() string { return AlgorithmArgon2id }

func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate salt")
	}

	key := argon2.IDKey([]byte(password), salt, h.Iterations, h.Memory, h.Parallelism, h.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		AlgorithmArgon2id,
		argon2.Version,
		h.Memory,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the key with the stored parameters and salt
func (h *Argon2idHasher) Verify(record, password string) (bool, error) {
	p, err := decodeArgon2id(record)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), p.salt, p.iterations, p.memory, p.parallelism, uint32(len(p.key)))

	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

// NeedsRehash is true when the record was produced with other parameters
func (h *Argon2idHasher) NeedsRehash(record string) bool {
	p, err := decodeArgon2id(record)
	if err != nil {
		return true
	}
	return p.memory != h.Memory ||
		p.iterations != h.Iterations ||
		p.parallelism != h.Parallelism ||
		uint32(len(p.salt)) != h.SaltLength ||
		uint32(len(p.key)) != h.KeyLength
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decodeArgon2id(record string) (*argon2Params, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(record, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != AlgorithmArgon2id {
		return nil, Annotate(ErrMalformedHash, nil, map[string]any{"reason": "field count"})
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, Annotate(ErrMalformedHash, err, nil)
	}
	if version != argon2.Version {
		return nil, Annotate(ErrMalformedHash, nil, map[string]any{"reason": "version", "version": version})
	}

	p := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return nil, Annotate(ErrMalformedHash, err, nil)
	}
	if p.memory == 0 || p.iterations == 0 || p.parallelism == 0 {
		return nil, Annotate(ErrMalformedHash, nil, map[string]any{"reason": "parameters"})
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) == 0 {
		return nil, Annotate(ErrMalformedHash, nil, map[string]any{"reason": "salt"})
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.key) == 0 {
		return nil, Annotate(ErrMalformedHash, nil, map[string]any{"reason": "digest"})
	}

	return p, nil
}
