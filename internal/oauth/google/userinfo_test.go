package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func server(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchUserInfo_OK(t *testing.T) {
	srv := server(t, 200, `{"sub":"123","email":"ana@example.com","email_verified":true,"name":"Ana"}`)
	info, err := New(srv.URL, time.Second).FetchUserInfo(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "123", info.Sub)
	assert.Equal(t, "ana@example.com", info.Email)
	assert.True(t, info.Verified())
}

func TestFetchUserInfo_StringVerified(t *testing.T) {
	srv := server(t, 200, `{"sub":"123","email":"ana@example.com","email_verified":"false"}`)
	info, err := New(srv.URL, time.Second).FetchUserInfo(context.Background(), "good")
	require.NoError(t, err)
	assert.False(t, info.Verified())
}

func TestFetchUserInfo_Errors(t *testing.T) {
	srv := server(t, 200, `{}`)
	p := New(srv.URL, time.Second)

	_, err := p.FetchUserInfo(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.FetchUserInfo(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.FetchUserInfo(context.Background(), "good")
	assert.ErrorIs(t, err, ErrUnavailable, "missing sub")

	down := server(t, 503, `oops`)
	_, err = New(down.URL, time.Second).FetchUserInfo(context.Background(), "good")
	assert.ErrorIs(t, err, ErrUnavailable)
}
