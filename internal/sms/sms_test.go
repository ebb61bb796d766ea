package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioSender_Send(t *testing.T) {
	var got struct {
		path, user, pass, to, from, body string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.path = r.URL.Path
		got.user, got.pass, _ = r.BasicAuth()
		got.to = r.PostForm.Get("To")
		got.from = r.PostForm.Get("From")
		got.body = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender(Config{APIBase: srv.URL + "/", AccountSID: "AC1", AuthToken: "tok"})
	require.NoError(t, s.Send(context.Background(), "+15555550123", "+15550000000", "Use this code to login: AB12CD"))

	assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", got.path)
	assert.Equal(t, "AC1", got.user)
	assert.Equal(t, "tok", got.pass)
	assert.Equal(t, "+15555550123", got.to)
	assert.Equal(t, "+15550000000", got.from)
	assert.Equal(t, "Use this code to login: AB12CD", got.body)
}

func TestTwilioSender_Errors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"code":21211,"message":"invalid To"}`))
	}))
	defer srv.Close()
	s := NewTwilioSender(Config{APIBase: srv.URL, AccountSID: "AC1", AuthToken: "tok"})

	err := s.Send(context.Background(), "bad", "+1", "x")
	assert.ErrorIs(t, err, ErrRejected)

	status.Store(http.StatusBadGateway)
	err = s.Send(context.Background(), "+15555550123", "+1", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}
