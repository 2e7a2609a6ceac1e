package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "healthy", resp.object(t)["status"])

	env.mr.Close()
	resp = env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.status)
}

func TestReadinessWithoutRedis(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.status)
	checks := resp.object(t)["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, true)

	session := env.signup(t, "alice")
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "alice@example.com", session.User.Email)

	resp := env.do(t, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"name": "alice", "email": "alice@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, resp.status)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "alice@example.com", "password": "nope!!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = env.do(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = env.do(t, http.MethodGet, "/api/notifications", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = env.do(t, http.MethodGet, "/api/notifications", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.EqualValues(t, 0, resp.object(t)["unread_count"])

	resp = env.do(t, http.MethodPost, "/api/auth/refresh-token", "", fiber.Map{"refresh_token": session.RefreshToken})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	refreshed := resp.object(t)["access_token"].(string)
	assert.NotEmpty(t, refreshed)

	resp = env.do(t, http.MethodPost, "/api/auth/logout", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)

	resp = env.do(t, http.MethodGet, "/api/notifications", session.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status, "a logged-out token is revoked")

	resp = env.do(t, http.MethodPost, "/api/auth/refresh-token", "", fiber.Map{"refresh_token": session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestQuestionAnswerAndVoting(t *testing.T) {
	env := newTestEnv(t, true)
	asker := env.signup(t, "asker")
	helper := env.signup(t, "helper")

	resp := env.do(t, http.MethodPost, "/api/quesans/question", "", fiber.Map{"title": "t"})
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = env.do(t, http.MethodPost, "/api/quesans/question", asker.AccessToken, fiber.Map{
		"title": "", "description": "d", "tags": []string{"go"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	qID := env.postQuestion(t, asker.AccessToken, "Why does my channel block?")
	aID := env.postAnswer(t, helper.AccessToken, qID)

	resp = env.do(t, http.MethodGet, "/api/quesans/questions?tag=GO", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var listed []models.Question
	resp.decode(t, &listed)
	require.Len(t, listed, 1)

	resp = env.do(t, http.MethodGet, urlf("/api/quesans/questions/%d", qID), "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var detail models.Question
	resp.decode(t, &detail)
	assert.Len(t, detail.Answers, 1)

	resp = env.do(t, http.MethodGet, urlf("/api/quesans/answers/%d", qID), "", nil)
	require.Equal(t, http.StatusOK, resp.status)

	// upvote, then upvote again to retract
	resp = env.do(t, http.MethodPut, urlf("/api/quesans/questions/%d/upvote", qID), helper.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var result models.VoteResult
	resp.decode(t, &result)
	assert.Equal(t, 1, result.Upvotes)
	assert.Equal(t, models.VoteUp, result.State)

	resp = env.do(t, http.MethodPut, urlf("/api/quesans/questions/%d/upvote", qID), helper.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &result)
	assert.Zero(t, result.Upvotes)
	assert.Equal(t, models.VoteNone, result.State)

	resp = env.do(t, http.MethodPut, urlf("/api/quesans/answers/%d/downvote", aID), asker.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &result)
	assert.Equal(t, 1, result.Downvotes)
	assert.Equal(t, -1, result.Score)

	resp = env.do(t, http.MethodPut, "/api/quesans/questions/999/upvote", helper.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = env.do(t, http.MethodPut, "/api/quesans/questions/abc/upvote", helper.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Invalid ID", resp.object(t)["error"])

	// only the asker can accept
	resp = env.do(t, http.MethodPut, urlf("/api/quesans/questions/%d/accept/%d", qID, aID), helper.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodPut, urlf("/api/quesans/questions/%d/accept/%d", qID, aID), asker.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var accepted models.Question
	resp.decode(t, &accepted)
	require.NotNil(t, accepted.AcceptedAnswerID)
	assert.Equal(t, aID, *accepted.AcceptedAnswerID)

	resp = env.do(t, http.MethodPost, urlf("/api/quesans/answer/%d", aID), asker.AccessToken, fiber.Map{"content": "mine now"})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodPost, urlf("/api/quesans/question/%d", qID), asker.AccessToken, fiber.Map{"title": "Edited"})
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "Edited", resp.object(t)["title"])
}

func TestNotificationEndpoints(t *testing.T) {
	env := newTestEnv(t, true)
	asker := env.signup(t, "asker")
	helper := env.signup(t, "helper")

	qID := env.postQuestion(t, asker.AccessToken, "Nil map panic")
	env.postAnswer(t, helper.AccessToken, qID)
	env.postAnswer(t, helper.AccessToken, qID)

	resp := env.do(t, http.MethodGet, "/api/notifications", asker.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var body struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int64                 `json:"unread_count"`
	}
	resp.decode(t, &body)
	require.Len(t, body.Notifications, 2)
	assert.Equal(t, int64(2), body.UnreadCount)

	first := body.Notifications[0].ID
	resp = env.do(t, http.MethodPut, urlf("/api/notifications/%d/read", first), helper.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = env.do(t, http.MethodPut, urlf("/api/notifications/%d/read", first), asker.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)

	resp = env.do(t, http.MethodPut, "/api/notifications/read-all", asker.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.EqualValues(t, 1, resp.object(t)["updated"])

	resp = env.do(t, http.MethodGet, "/api/notifications", helper.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.EqualValues(t, 0, resp.object(t)["unread_count"])
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t, true)
	admin := env.signup(t, "admin")
	env.promote(t, admin.User.ID)
	member := env.signup(t, "member")

	resp := env.do(t, http.MethodGet, "/api/admin/users", member.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodGet, "/api/admin/users", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.EqualValues(t, 2, resp.object(t)["total"])

	resp = env.do(t, http.MethodGet, "/api/admin/feature-flags", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.object(t), "evaluated")

	qID := env.postQuestion(t, member.AccessToken, "Spam")
	aID := env.postAnswer(t, member.AccessToken, qID)

	resp = env.do(t, http.MethodDelete, urlf("/api/admin/answers/%d", aID), admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp = env.do(t, http.MethodDelete, urlf("/api/admin/questions/%d", qID), admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp = env.do(t, http.MethodGet, urlf("/api/quesans/questions/%d", qID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = env.do(t, http.MethodPut, urlf("/api/admin/users/%d/ban", admin.User.ID), admin.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodPut, urlf("/api/admin/users/%d/ban", member.User.ID), admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, true, resp.object(t)["is_banned"])

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "member@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodDelete, urlf("/api/admin/users/%d", member.User.ID), admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp = env.do(t, http.MethodDelete, urlf("/api/admin/users/%d", member.User.ID), admin.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestWebsocketTicket(t *testing.T) {
	env := newTestEnv(t, true)
	user := env.signup(t, "watcher")

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	ticket := resp.object(t)["ticket"].(string)
	require.NotEmpty(t, ticket)

	// a plain GET passes auth but is not an upgrade
	resp = env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.status)

	resp = env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status, "tickets are single use")
}

func TestWebsocketTicketWithoutRedis(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.signup(t, "watcher")

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", user.AccessToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.status)
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"answerId", "answer ID"},
		{"notificationId", "notification ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		query  string
		limit  float64
		offset float64
	}{
		{"", 25, 0},
		{"?limit=10&offset=5", 10, 5},
		{"?limit=-1&offset=-3", 25, 0},
		{"?limit=1000", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			m := apiResponse{status: resp.StatusCode, body: readAll(t, resp)}.object(t)
			assert.Equal(t, tt.limit, m["limit"])
			assert.Equal(t, tt.offset, m["offset"])
		})
	}
}
