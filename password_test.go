package auth_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-blog-auth"
)

func TestArgon2idHasher_RoundTrip(t *testing.T) {
	h := auth.NewArgon2idHasher()

	record, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(record, "$argon2id$v=19$m=65536,t=3,p=1$"), record)

	ok, err := h.Verify(record, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(record, "correct horse battery stapl")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, h.NeedsRehash(record))
}

func TestArgon2idHasher_FreshSaltPerHash(t *testing.T) {
	h := fastHasher()

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, strings.Split(a, "$")[4], strings.Split(b, "$")[4])
}

func TestArgon2idHasher_EmptyPassword(t *testing.T) {
	_, err := fastHasher().Hash("")
	assert.True(t, errors.Is(err, auth.ErrEmptyPassword))
}

func TestArgon2idHasher_MalformedRecords(t *testing.T) {
	h := auth.NewArgon2idHasher()
	valid, err := fastHasher().Hash("pw")
	require.NoError(t, err)
	parts := strings.Split(valid, "$")

	cases := map[string]string{
		"field count":     "$argon2id$v=19$m=1024,t=1,p=1$onlysalt",
		"bad version":     "$argon2id$v=16$" + strings.Join(parts[3:], "$"),
		"bad params":      "$argon2id$v=19$m=x,t=1,p=1$" + strings.Join(parts[4:], "$"),
		"zero params":     "$argon2id$v=19$m=0,t=1,p=1$" + strings.Join(parts[4:], "$"),
		"bad salt":        "$argon2id$v=19$" + parts[3] + "$!!!$" + parts[5],
		"bad digest":      "$argon2id$v=19$" + parts[3] + "$" + parts[4] + "$%%%",
		"other algorithm": "$scrypt$v=19$" + strings.Join(parts[3:], "$"),
	}

	for name, record := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := h.Verify(record, "pw")
			assert.False(t, ok)
			assert.True(t, errors.Is(err, auth.ErrMalformedHash), "got %v", err)
			assert.True(t, h.NeedsRehash(record))
		})
	}
}

func TestArgon2idHasher_NeedsRehashOnParameterChange(t *testing.T) {
	weak, err := fastHasher().Hash("pw")
	require.NoError(t, err)

	assert.True(t, auth.NewArgon2idHasher().NeedsRehash(weak))
	assert.False(t, fastHasher().NeedsRehash(weak))
}

func TestMultiHasher_BcryptLegacy(t *testing.T) {
	legacy, err := auth.NewBcryptHasher(bcrypt.MinCost).Hash("legacy-pass")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(legacy, "$2a$"))

	h := auth.NewDefaultPasswordHasher()

	ok, err := h.Verify(legacy, "legacy-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(legacy, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, h.NeedsRehash(legacy))

	record, err := h.Hash("legacy-pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(record, "$argon2id$"))
	assert.False(t, h.NeedsRehash(record))
}

func TestMultiHasher_UnknownAlgorithm(t *testing.T) {
	h := auth.NewDefaultPasswordHasher()

	for _, record := range []string{"", "plaintext", "$md5$abc$def"} {
		ok, err := h.Verify(record, "pw")
		assert.False(t, ok)
		assert.True(t, errors.Is(err, auth.ErrMalformedHash), record)
	}
}

func TestBcryptHasher_MalformedRecord(t *testing.T) {
	ok, err := auth.NewBcryptHasher(bcrypt.MinCost).Verify("$2a$04$short", "pw")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, auth.ErrMalformedHash))
}
