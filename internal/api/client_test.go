package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/tower-stacker/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.server.Router())
	defer srv.Close()

	client, err := NewClient(srv.URL+"/", nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.SubmitResult(ctx, game.Result{PlayerName: "Mehmon", Score: 100, DiscountEarned: 50, PartsStacked: 6}))
	require.NoError(t, client.SubmitResult(ctx, game.Result{PlayerName: "Second", Score: 70, DiscountEarned: 35, PartsStacked: 6}))

	top, err := client.ListTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Mehmon", top[0].PlayerName)

	top, err = client.ListTop(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	settings, err := client.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, settings.MaxDiscount)
}

func TestClient_ValidationError(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.server.Router())
	defer srv.Close()

	client, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	err = client.SubmitResult(context.Background(), game.Result{PlayerName: "x", Score: 100, DiscountEarned: 99, PartsStacked: 6})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "ожидалась APIError, получено %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "discountEarned", apiErr.Field)
}

func TestClient_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(url, nil)
	require.NoError(t, err)
	_, err = client.ListTop(context.Background(), 10)
	assert.Error(t, err)
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com", nil)
	assert.Error(t, err)
	_, err = NewClient("::nope", nil)
	assert.Error(t, err)
}
