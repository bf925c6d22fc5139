package server

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"publicfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multipartBody builds a multipart form from string fields.
func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func doMultipart(t *testing.T, app *fiber.App, method, path string, fields map[string]string, token string) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, fields)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func createPost(t *testing.T, app *fiber.App, token, text string) uint {
	t.Helper()
	resp := doMultipart(t, app, http.MethodPost, "/api/posts", map[string]string{"text": text}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeBody(t, resp)
	post, ok := out["post"].(map[string]any)
	require.True(t, ok, "response missing post: %v", out)
	id, ok := post["id"].(float64)
	require.True(t, ok)
	return uint(id)
}

func patch(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func postFromResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	out := decodeBody(t, resp)
	post, ok := out["post"].(map[string]any)
	require.True(t, ok, "response missing post: %v", out)
	return post
}

func TestCreateAndFetchPosts(t *testing.T) {
	app, _, mailer, _ := newTestServer(t, nil)
	token := signupAndVerify(t, app, mailer, "author@example.com")

	t.Run("CreateTextPost", func(t *testing.T) {
		resp := doMultipart(t, app, http.MethodPost, "/api/posts", map[string]string{"text": "hello feed"}, token)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		post := postFromResponse(t, resp)
		assert.Equal(t, "hello feed", post["content"])
		assert.Equal(t, float64(0), post["likesCount"])
	})

	t.Run("EmptyTextRejected", func(t *testing.T) {
		resp := doMultipart(t, app, http.MethodPost, "/api/posts", map[string]string{"text": "   "}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("AnonymousCannotPost", func(t *testing.T) {
		resp := doMultipart(t, app, http.MethodPost, "/api/posts", map[string]string{"text": "nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("MyPosts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/posts/user", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		out := decodeBody(t, resp)
		posts, ok := out["posts"].([]any)
		require.True(t, ok)
		assert.Len(t, posts, 1)
	})
}

func TestReactionEndpoints(t *testing.T) {
	app, _, mailer, _ := newTestServer(t, nil)
	author := signupAndVerify(t, app, mailer, "author@example.com")
	viewer := signupAndVerify(t, app, mailer, "viewer@example.com")

	postID := createPost(t, app, author, "react to me")
	likePath := fmt.Sprintf("/api/posts/%d/like", postID)
	dislikePath := fmt.Sprintf("/api/posts/%d/dislike", postID)

	t.Run("Like", func(t *testing.T) {
		resp := patch(t, app, likePath, viewer)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		post := postFromResponse(t, resp)
		assert.Equal(t, float64(1), post["likesCount"])
		assert.Equal(t, true, post["liked"])
	})

	t.Run("DislikeClearsLike", func(t *testing.T) {
		resp := patch(t, app, dislikePath, viewer)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		post := postFromResponse(t, resp)
		assert.Equal(t, float64(0), post["likesCount"])
		assert.Equal(t, float64(1), post["dislikesCount"])
		assert.Equal(t, false, post["liked"])
		assert.Equal(t, true, post["disliked"])
	})

	t.Run("SecondDislikeRemoves", func(t *testing.T) {
		resp := patch(t, app, dislikePath, viewer)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		post := postFromResponse(t, resp)
		assert.Equal(t, float64(0), post["dislikesCount"])
		assert.Equal(t, false, post["disliked"])
	})

	t.Run("MissingPost", func(t *testing.T) {
		resp := patch(t, app, "/api/posts/999999/like", viewer)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestCommentEndpoint(t *testing.T) {
	app, _, mailer, _ := newTestServer(t, nil)
	author := signupAndVerify(t, app, mailer, "author@example.com")
	postID := createPost(t, app, author, "discuss")

	path := fmt.Sprintf("/api/posts/%d/comments", postID)

	t.Run("AppendsComments", func(t *testing.T) {
		resp := postJSON(t, app, path, map[string]string{"text": "first"}, author)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()

		resp = postJSON(t, app, path, map[string]string{"text": "second"}, author)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		post := postFromResponse(t, resp)
		assert.Equal(t, float64(2), post["commentsCount"])

		comments, ok := post["comments"].([]any)
		require.True(t, ok)
		first, ok := comments[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "first", first["content"])
	})

	t.Run("EmptyCommentRejected", func(t *testing.T) {
		resp := postJSON(t, app, path, map[string]string{"text": " "}, author)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestPostOwnership(t *testing.T) {
	app, _, mailer, _ := newTestServer(t, nil)
	owner := signupAndVerify(t, app, mailer, "owner@example.com")
	intruder := signupAndVerify(t, app, mailer, "intruder@example.com")

	postID := createPost(t, app, owner, "mine")
	path := fmt.Sprintf("/api/posts/%d", postID)

	t.Run("NonOwnerEditForbidden", func(t *testing.T) {
		resp := doMultipart(t, app, http.MethodPatch, path, map[string]string{"text": "stolen"}, intruder)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		out := decodeBody(t, resp)
		assert.Equal(t, models.CodeForbidden, out["code"])
	})

	t.Run("NonOwnerDeleteForbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		req.Header.Set("Authorization", "Bearer "+intruder)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("OwnerEdits", func(t *testing.T) {
		resp := doMultipart(t, app, http.MethodPatch, path, map[string]string{"text": "edited"}, owner)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		post := postFromResponse(t, resp)
		assert.Equal(t, "edited", post["content"])
	})

	t.Run("OwnerDeletes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		req.Header.Set("Authorization", "Bearer "+owner)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = patch(t, app, fmt.Sprintf("/api/posts/%d/like", postID), owner)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestFeedEndpoint(t *testing.T) {
	app, _, mailer, _ := newTestServer(t, nil)
	author := signupAndVerify(t, app, mailer, "feed@example.com")

	for i := 0; i < 25; i++ {
		createPost(t, app, author, fmt.Sprintf("post %d", i))
	}

	getFeed := func(t *testing.T, query string) map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/api/posts/feed"+query, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return decodeBody(t, resp)
	}

	t.Run("FirstPageNewestFirst", func(t *testing.T) {
		out := getFeed(t, "?page=1&limit=10")
		assert.Equal(t, float64(25), out["totalPosts"])
		assert.Equal(t, true, out["hasNextPage"])
		assert.Equal(t, false, out["hasPrevPage"])

		posts, ok := out["posts"].([]any)
		require.True(t, ok)
		require.Len(t, posts, 10)
		first, ok := posts[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "post 24", first["content"])
	})

	t.Run("LastPartialPage", func(t *testing.T) {
		out := getFeed(t, "?page=3&limit=10")
		posts, ok := out["posts"].([]any)
		require.True(t, ok)
		assert.Len(t, posts, 5)
		assert.Equal(t, false, out["hasNextPage"])
		assert.Equal(t, true, out["hasPrevPage"])
	})

	t.Run("AnonymousViewerSeesNoReactionFlags", func(t *testing.T) {
		out := getFeed(t, "?page=1&limit=5")
		posts, ok := out["posts"].([]any)
		require.True(t, ok)
		first, ok := posts[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, false, first["liked"])
		assert.Equal(t, false, first["disliked"])
	})
}

func TestUserBrowsing(t *testing.T) {
	app, _, mailer, _ := newTestServer(t, nil)
	signupAndVerify(t, app, mailer, "a@example.com")
	signupAndVerify(t, app, mailer, "b@example.com")

	t.Run("ListUsersIsPublic", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		out := decodeBody(t, resp)
		users, ok := out["users"].([]any)
		require.True(t, ok)
		assert.Len(t, users, 2)

		// Credential material never serializes.
		first, ok := users[0].(map[string]any)
		require.True(t, ok)
		_, hasPassword := first["password"]
		assert.False(t, hasPassword)
	})

	t.Run("SingleUser", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("MissingUser", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/9999", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("InvalidUserID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/abc", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}
