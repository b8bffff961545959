package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"voicenet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostRequiresAudio(t *testing.T) {
	t.Parallel()

	_, app := newTestServer(t)
	token := signupUser(t, app, "poster")

	resp, err := app.Test(newAuthedRequest(http.MethodPost, "/api/posts", token, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	_, app := newTestServer(t)
	author := signupUser(t, app, "author")
	listener := signupUser(t, app, "listener")

	postID := createPostViaAPI(t, app, author)

	// The feed contains the post with a served audio URL.
	resp, err := app.Test(newAuthedRequest(http.MethodGet, "/api/posts", listener, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var feed struct {
		Posts []models.Post `json:"posts"`
	}
	decodeJSON(t, resp, &feed)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, postID, feed.Posts[0].ID)
	assert.Contains(t, feed.Posts[0].AudioURL, "/uploads/posts/")
	assert.False(t, feed.Posts[0].UserListened)

	// Listening twice counts once.
	for i := 0; i < 2; i++ {
		resp, err = app.Test(newAuthedRequest(http.MethodPost, "/api/posts/"+postID+"/listen", listener, nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	var post models.Post
	decodeJSON(t, resp, &post)
	assert.Equal(t, 1, post.Listens)
	assert.True(t, post.UserListened)

	// The uploaded audio is actually served.
	req, _ := http.NewRequest(http.MethodGet, post.AudioURL, nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVoteDeleteOverHTTP(t *testing.T) {
	t.Parallel()

	_, app := newTestServer(t)
	author := signupUser(t, app, "author")
	postID := createPostViaAPI(t, app, author)

	voters := seedTokens(t, app, 5, "voter")
	for _, token := range voters {
		resp, err := app.Test(newAuthedRequest(http.MethodPost, "/api/posts/"+postID+"/listen", token, nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var lastBody struct {
		Deleted bool `json:"deleted"`
	}
	for _, token := range voters {
		resp, err := app.Test(newAuthedRequest(http.MethodPost, "/api/posts/"+postID+"/vote-delete", token, nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeJSON(t, resp, &lastBody)
	}
	assert.True(t, lastBody.Deleted, "5 votes on 5 listens must delete the post")

	// The post is gone.
	resp, err := app.Test(newAuthedRequest(http.MethodGet, "/api/posts/"+postID, author, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReportPostOverHTTP(t *testing.T) {
	t.Parallel()

	_, app := newTestServer(t)
	author := signupUser(t, app, "author")
	reporter := signupUser(t, app, "reporter")
	postID := createPostViaAPI(t, app, author)

	body, _ := json.Marshal(map[string]string{"reason": "abusive rant"})
	resp, err := app.Test(newAuthedRequest(http.MethodPost, "/api/posts/"+postID+"/report", reporter, bytes.NewReader(body)), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Missing reason is rejected.
	body, _ = json.Marshal(map[string]string{"reason": ""})
	resp, err = app.Test(newAuthedRequest(http.MethodPost, "/api/posts/"+postID+"/report", reporter, bytes.NewReader(body)), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPostRejectsMalformedID(t *testing.T) {
	t.Parallel()

	_, app := newTestServer(t)
	token := signupUser(t, app, "someone")

	resp, err := app.Test(newAuthedRequest(http.MethodGet, "/api/posts/not-a-uuid", token, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
