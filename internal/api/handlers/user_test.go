package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserEndpoint(t *testing.T) {
	app, _ := newGameApp(t, 45000)

	userID := createUser(t, app, "satoshi")
	assert.NotEmpty(t, userID)
}

func TestCreateUserMissingUsername(t *testing.T) {
	app, _ := newGameApp(t, 45000)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/create-user", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateUserDuplicate(t *testing.T) {
	app, _ := newGameApp(t, 45000)

	createUser(t, app, "satoshi")

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/create-user", `{"username":"satoshi"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetUserScore(t *testing.T) {
	app, _ := newGameApp(t, 45000)

	createUser(t, app, "satoshi")

	resp, err := app.Test(jsonRequest(http.MethodGet, "/api/user/satoshi", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, "satoshi", payload["username"])
	assert.Equal(t, float64(0), payload["score"])
}

func TestGetUserNotFound(t *testing.T) {
	app, _ := newGameApp(t, 45000)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/api/user/nobody", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
