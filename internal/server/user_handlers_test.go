package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMyProfile(t *testing.T) {
	app, _, mailer, _ := newTestServer(t, nil)
	token := signupAndVerify(t, app, mailer, "me@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp)
	user, ok := out["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "me@example.com", user["email"])
	_, hasPassword := user["password"]
	assert.False(t, hasPassword)
}

func TestUpdateMyProfile(t *testing.T) {
	app, _, mailer, _ := newTestServer(t, nil)
	token := signupAndVerify(t, app, mailer, "me@example.com")

	t.Run("UpdatesNameAndBio", func(t *testing.T) {
		resp := doMultipart(t, app, http.MethodPut, "/api/users/update-profile", map[string]string{
			"firstName": "Janet",
			"bio":       "hello world",
		}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decodeBody(t, resp)
		user, ok := out["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Janet", user["firstName"])
		assert.Equal(t, "Doe", user["lastName"])
		assert.Equal(t, "hello world", user["bio"])
	})

	t.Run("EmptyNameRejected", func(t *testing.T) {
		resp := doMultipart(t, app, http.MethodPut, "/api/users/update-profile", map[string]string{
			"firstName": "  ",
		}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("AvatarUploadWithoutUploaderConfigured", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		fw, err := w.CreateFormFile("avatar", "avatar.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPut, "/api/users/update-profile", buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("RequiresSession", func(t *testing.T) {
		resp := doMultipart(t, app, http.MethodPut, "/api/users/update-profile", map[string]string{
			"bio": "anon",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})
}
