package auth

import "strings"

// PasswordHasher turns passwords into self-describing records and back
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns ErrMalformedHash for records it cannot decode
	Verify(record, password string) (bool, error)
	NeedsRehash(record string) bool
}

// AlgorithmHasher is a PasswordHasher bound to one algorithm tag
type AlgorithmHasher interface {
	PasswordHasher
	Algorithm() string
}

// MultiHasher hashes with a default algorithm and verifies any registered
// one, dispatching on the record's algorithm tag. Records produced by a
// non default algorithm report NeedsRehash so they migrate on next login.
type MultiHasher struct {
	def     AlgorithmHasher
	hashers map[string]AlgorithmHasher
}

// NewMultiHasher registers def plus the legacy hashers
func NewMultiHasher(def AlgorithmHasher, legacy ...AlgorithmHasher) *MultiHasher {
	m := &MultiHasher{
		def:     def,
		hashers: map[string]AlgorithmHasher{def.Algorithm(): def},
	}
	for _, h := range legacy {
		if h != nil {
			m.hashers[h.Algorithm()] = h
		}
	}
	return m
}

// NewDefaultPasswordHasher is Argon2id with bcrypt verification support
func NewDefaultPasswordHasher() *MultiHasher {
	return NewMultiHasher(NewArgon2idHasher(), NewBcryptHasher(0))
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.def.Hash(password)
}

func (m *MultiHasher) Verify(record, password string) (bool, error) {
	h, ok := m.hashers[algorithmOf(record)]
	if !ok {
		return false, Annotate(ErrMalformedHash, nil, map[string]any{"reason": "unknown algorithm"})
	}
	return h.Verify(record, password)
}

func (m *MultiHasher) NeedsRehash(record string) bool {
	if algorithmOf(record) != m.def.Algorithm() {
		return true
	}
	return m.def.NeedsRehash(record)
}

func algorithmOf(record string) string {
	if isBcryptRecord(record) {
		return AlgorithmBcrypt
	}
	parts := strings.SplitN(record, "$", 3)
	if len(parts) < 3 || parts[0] != "" {
		return ""
	}
	return parts[1]
}
