package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stackit/internal/cache"
	"stackit/internal/config"
	"stackit/internal/database"
	"stackit/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "server-test-secret-long-enough-for-hs256"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	mr     *miniredis.Miniredis
}

// newTestEnv builds the full app over sqlite and miniredis. With withRedis
// false the server runs with a disconnected cache client.
func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	env := &testEnv{db: db}
	cacheClient := &cache.Client{}
	if withRedis {
		env.mr = miniredis.RunT(t)
		cacheClient = cache.New(redis.NewClient(&redis.Options{Addr: env.mr.Addr()}))
		t.Cleanup(func() { _ = cacheClient.Close() })
	}

	cfg := &config.Config{JWTSecret: testSecret, AllowedOrigins: "*"}
	s, err := newServer(cfg, db, cacheClient, clockwork.NewFakeClockAt(time.Now()))
	require.NoError(t, err)

	env.server = s
	env.app = s.NewApp()
	return env
}

type apiResponse struct {
	status int
	body   []byte
}

func (r apiResponse) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r apiResponse) object(t *testing.T) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	r.decode(t, &m)
	return m
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return apiResponse{status: resp.StatusCode, body: readAll(t, resp)}
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return raw
}

type sessionBody struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

func (e *testEnv) signup(t *testing.T, name string) sessionBody {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"name":     name,
		"email":    name + "@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var s sessionBody
	resp.decode(t, &s)
	return s
}

func (e *testEnv) promote(t *testing.T, userID uint) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", userID).Update("role", models.RoleAdmin).Error)
}

func (e *testEnv) postQuestion(t *testing.T, token, title string) uint {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/quesans/question", token, fiber.Map{
		"title":       title,
		"description": "details",
		"tags":        []string{"go"},
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var q models.Question
	resp.decode(t, &q)
	return q.ID
}

func (e *testEnv) postAnswer(t *testing.T, token string, questionID uint) uint {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/quesans/answer", token, fiber.Map{
		"question_id": questionID,
		"content":     "try this",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var a models.Answer
	resp.decode(t, &a)
	return a.ID
}

func urlf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
