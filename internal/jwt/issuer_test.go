package jwt

import (
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestIssueVerify_RoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	iss, err := NewIssuer("weasl", []byte("process-secret"), WithClock(fixedClock(now)))
	require.NoError(t, err)

	cred, err := iss.Issue("principal-1")
	require.NoError(t, err)
	assert.Equal(t, "principal-1", cred.Subject)
	assert.Equal(t, now, cred.IssuedAt)
	assert.Equal(t, now.Add(7*24*time.Hour), cred.ExpiresAt)

	sub, err := iss.Verify(cred.Token)
	require.NoError(t, err)
	assert.Equal(t, "principal-1", sub)
}

func TestVerify_Expired(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	iss, err := NewIssuer("weasl", []byte("s"), WithClock(fixedClock(now)))
	require.NoError(t, err)
	cred, err := iss.Issue("p")
	require.NoError(t, err)

	later, err := NewIssuer("weasl", []byte("s"), WithClock(fixedClock(cred.ExpiresAt.Add(time.Second))))
	require.NoError(t, err)
	_, err = later.Verify(cred.Token)
	assert.ErrorIs(t, err, ErrRejected)

	before, err := NewIssuer("weasl", []byte("s"), WithClock(fixedClock(cred.ExpiresAt.Add(-time.Second))))
	require.NoError(t, err)
	_, err = before.Verify(cred.Token)
	assert.NoError(t, err)
}

func TestVerify_Rejections(t *testing.T) {
	iss, err := NewIssuer("weasl", []byte("secret-a"))
	require.NoError(t, err)
	cred, err := iss.Issue("p")
	require.NoError(t, err)

	other, err := NewIssuer("weasl", []byte("secret-b"))
	require.NoError(t, err)
	_, err = other.Verify(cred.Token)
	assert.ErrorIs(t, err, ErrRejected, "different secret")

	wrongIss, err := NewIssuer("someone-else", []byte("secret-a"))
	require.NoError(t, err)
	_, err = wrongIss.Verify(cred.Token)
	assert.ErrorIs(t, err, ErrRejected, "different issuer")

	for _, bad := range []string{"", "abc", "a.b.c", cred.Token + "x"} {
		_, err = iss.Verify(bad)
		assert.ErrorIs(t, err, ErrRejected, bad)
	}

	parts := strings.Split(cred.Token, ".")
	none := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." + parts[1] + "."
	_, err = iss.Verify(none)
	assert.ErrorIs(t, err, ErrRejected, "alg none")
}

func TestVerify_MissingExpiration(t *testing.T) {
	iss, err := NewIssuer("weasl", []byte("s"))
	require.NoError(t, err)
	tok, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.RegisteredClaims{
		Subject: "p",
		Issuer:  "weasl",
	}).SignedString(iss.key)
	require.NoError(t, err)

	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	_, err := NewIssuer("weasl", nil)
	assert.Error(t, err)
}
