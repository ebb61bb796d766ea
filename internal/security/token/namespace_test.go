package token_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/weasl/internal/security/token"
)

func TestEmailCandidateIsUUID(t *testing.T) {
	ns := token.Email{}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		c, err := ns.Candidate()
		require.NoError(t, err)
		_, err = uuid.Parse(c)
		require.NoError(t, err)
		require.NoError(t, ns.Validate(c))
		assert.False(t, seen[c], "duplicate candidate")
		seen[c] = true
	}
}

func TestEmailValidate(t *testing.T) {
	ns := token.Email{}
	assert.ErrorIs(t, ns.Validate("not-a-uuid"), token.ErrMalformed)
	assert.ErrorIs(t, ns.Validate(""), token.ErrMalformed)
	id := uuid.NewString()
	assert.NoError(t, ns.Validate(id))
	assert.ErrorIs(t, ns.Validate("{"+id+"}"), token.ErrMalformed)
	assert.ErrorIs(t, ns.Validate("urn:uuid:"+id), token.ErrMalformed)
	assert.ErrorIs(t, ns.Validate(strings.ReplaceAll(id, "-", "")), token.ErrMalformed)
	assert.ErrorIs(t, ns.Validate(strings.ToUpper(id)), token.ErrMalformed)
	// Case-sensitive: Normalize no altera mayúsculas.
	u := strings.ToUpper(uuid.NewString())
	assert.Equal(t, u, ns.Normalize(" "+u+" "))
}

func TestSMSCandidate(t *testing.T) {
	ns := token.SMS{}
	for i := 0; i < 500; i++ {
		c, err := ns.Candidate()
		require.NoError(t, err)
		require.Len(t, c, token.SMSLength)
		for _, r := range c {
			assert.True(t, strings.ContainsRune(token.SMSAlphabet, r), "char %q outside alphabet", r)
		}
		require.NoError(t, ns.Validate(c))
	}
}

func TestSMSNormalizeIsCaseInsensitive(t *testing.T) {
	ns := token.SMS{}
	assert.Equal(t, "ab12cd", ns.Normalize("AB12cd"))
	assert.Equal(t, ns.Normalize("aB12Cd"), ns.Normalize("Ab12cD"))
	assert.NoError(t, ns.Validate(ns.Normalize("AB12CD")))
}

func TestSMSValidate(t *testing.T) {
	ns := token.SMS{}
	assert.ErrorIs(t, ns.Validate("abc"), token.ErrMalformed)
	assert.ErrorIs(t, ns.Validate("abc!ef"), token.ErrMalformed)
	assert.ErrorIs(t, ns.Validate("ABCDEF"), token.ErrMalformed) // sin normalizar
}

func TestRandomHex(t *testing.T) {
	h, err := token.RandomHex(10)
	require.NoError(t, err)
	assert.Len(t, h, 20)
}
