package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersEscapesOrg(t *testing.T) {
	var gotOrg, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrg = r.URL.Query().Get("org")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"users":[{"id":"u1","name":"Alice"}]}`))
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, "tok-1", "acme & sons #eu")
	users, err := api.Users(context.Background())
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "acme & sons #eu", gotOrg)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestMessagesFetchesLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		w.Write([]byte(`{"messages":[{"id":"m1","chatId":"1-2","senderId":"2","content":"hi"}]}`))
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, "tok-1", "")
	msgs, err := api.Messages(context.Background())
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	assert.Equal(t, "1-2", msgs[0].ChatID)
}

func TestUsersNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, "tok-1", "")
	_, err := api.Users(context.Background())
	assert.Error(t, err)
}
