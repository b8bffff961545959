package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"voicenet/internal/blob"
	"voicenet/internal/config"
	"voicenet/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	uploadDir := t.TempDir()
	blobs, err := blob.NewLocalStore(uploadDir, "/uploads")
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret: "test-secret-for-handler-tests",
		Port:      "0",
		DBDriver:  "sqlite",
		UploadDir: uploadDir,
		Env:       "test",
	}

	srv, err := NewServerWithDeps(cfg, db, nil, blobs)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{BodyLimit: 12 * 1024 * 1024})
	srv.SetupRoutes(app)
	return srv, app
}

// signupUser registers a user through the API and returns the bearer token.
func signupUser(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": "HandlerTest12!",
	})
	require.NoError(t, err)

	req := newJSONRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func newJSONRequest(method, target string, body io.Reader) *http.Request {
	req, _ := http.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newAuthedRequest(method, target, token string, body io.Reader) *http.Request {
	req, _ := http.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// newAudioRequest builds a multipart request carrying an "audio" field.
func newAudioRequest(t *testing.T, method, target, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte(strings.Repeat("voice ", 32)))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, _ := http.NewRequest(method, target, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// createPostViaAPI publishes a post and returns its ID.
func createPostViaAPI(t *testing.T, app *fiber.App, token string) string {
	t.Helper()

	resp, err := app.Test(newAudioRequest(t, http.MethodPost, "/api/posts", token), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var post struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &post)
	require.NotEmpty(t, post.ID)
	return post.ID
}

func seedTokens(t *testing.T, app *fiber.App, n int, prefix string) []string {
	t.Helper()

	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = signupUser(t, app, fmt.Sprintf("%s%d", prefix, i))
	}
	return tokens
}
