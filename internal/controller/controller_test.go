package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nau-assistant/internal/dto"
	"nau-assistant/internal/pkg/serverutils"
	"nau-assistant/pkg/apperror"
	"nau-assistant/pkg/events"
	"nau-assistant/pkg/knowledge"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatbot struct {
	lastRequest *dto.SendChatRequest
	deleted     []string
}

func (f *fakeChatbot) CreateSession(context.Context) (*dto.CreateSessionResponse, error) {
	return &dto.CreateSessionResponse{SessionId: "chat_123"}, nil
}

func (f *fakeChatbot) GetAllSessions(context.Context) ([]*dto.SessionSummaryResponse, error) {
	return []*dto.SessionSummaryResponse{{Id: "chat_123", Preview: "What are the tuition fees"}}, nil
}

func (f *fakeChatbot) GetChatHistory(_ context.Context, id string) ([]*dto.ChatMessageResponse, error) {
	if id != "chat_123" {
		return []*dto.ChatMessageResponse{}, nil
	}
	return []*dto.ChatMessageResponse{{Seq: 1, Role: "user", Content: "hi"}}, nil
}

func (f *fakeChatbot) SendChat(_ context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	f.lastRequest = req
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperror.InvalidInput("chatbot.SendChat", "query is required")
	}
	return &dto.SendChatResponse{Answer: "answer", Sources: []string{"https://www.na.edu"}, ChatId: req.ChatId}, nil
}

func (f *fakeChatbot) DeleteSession(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeIndex struct {
	reasons []string
	err     error
}

func (f *fakeIndex) Current() *knowledge.Store { return nil }

func (f *fakeIndex) Reload(context.Context, string) (*dto.RefreshResult, error) {
	return &dto.RefreshResult{}, nil
}

func (f *fakeIndex) RequestRefresh(_ context.Context, reason string) error {
	f.reasons = append(f.reasons, reason)
	return f.err
}

func (f *fakeIndex) CheckForUpdates(context.Context) (bool, error) { return false, nil }

func (f *fakeIndex) Status(context.Context) *dto.IndexStatusResponse {
	return &dto.IndexStatusResponse{Generation: 4, Chunks: 250, Dimension: 768, Files: []dto.SnapshotFileResponse{}}
}

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, e events.Event) error {
	f.published = append(f.published, e)
	return nil
}

func newTestApp(chat IChatController, admin IAdminController) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	if chat != nil {
		chat.RegisterRoutes(api)
	}
	if admin != nil {
		admin.RegisterRoutes(api)
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestChatController(t *testing.T) {
	chatbot := &fakeChatbot{}
	app := newTestApp(NewChatController(chatbot, nil), nil)

	t.Run("Should create a session", func(t *testing.T) {
		resp, body := doJSON(t, app, "POST", "/api/chat/v1/sessions", nil, nil)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"session_id":"chat_123"}`, string(body))
	})

	t.Run("Should list sessions as a bare array", func(t *testing.T) {
		resp, body := doJSON(t, app, "GET", "/api/chat/v1/sessions", nil, nil)

		var got []dto.SessionSummaryResponse
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Len(t, got, 1)
		assert.Equal(t, "chat_123", got[0].Id)
	})

	t.Run("Should return an empty array for an unknown session", func(t *testing.T) {
		resp, body := doJSON(t, app, "GET", "/api/chat/v1/sessions/chat_missing", nil, nil)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[]`, string(body))
	})

	t.Run("Should always report delete success", func(t *testing.T) {
		resp, body := doJSON(t, app, "DELETE", "/api/chat/v1/sessions/chat_missing", nil, nil)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"success":true}`, string(body))
		assert.Equal(t, []string{"chat_missing"}, chatbot.deleted)
	})

	t.Run("Should answer a query", func(t *testing.T) {
		resp, body := doJSON(t, app, "POST", "/api/chat/v1/query",
			map[string]string{"chat_id": "chat_123", "query": "yes", "follow_up_to": "followup_1"}, nil)

		var got dto.SendChatResponse
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "answer", got.Answer)
		assert.Equal(t, "followup_1", chatbot.lastRequest.FollowUpTo)
	})

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing query", map[string]string{"chat_id": "chat_123"}},
		{"whitespace query", map[string]string{"query": "   "}},
		{"oversized chat id", map[string]string{"query": "hi", "chat_id": strings.Repeat("x", 129)}},
	}
	for _, tt := range tests {
		t.Run("Should reject "+tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, "POST", "/api/chat/v1/query", tt.body, nil)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}

	t.Run("Should reject a malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat/v1/query", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func adminHeader(t *testing.T, secret string) map[string]string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "ops",
		"role": serverutils.AdminRole,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestAdminController(t *testing.T) {
	const secret = "admin-secret"
	auth := adminHeader(t, secret)

	t.Run("Should accept a refresh and queue it", func(t *testing.T) {
		index := &fakeIndex{}
		app := newTestApp(nil, NewAdminController(index, nil, secret))

		resp, body := doJSON(t, app, "POST", "/api/admin/index/refresh", map[string]string{"reason": "crawler finished"}, auth)

		var got serverutils.Response[dto.RefreshIndexResponse]
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
		assert.True(t, got.Data.Accepted)
		assert.Equal(t, []string{"crawler finished"}, index.reasons)
	})

	t.Run("Should default the refresh reason", func(t *testing.T) {
		index := &fakeIndex{}
		app := newTestApp(nil, NewAdminController(index, nil, secret))

		resp, _ := doJSON(t, app, "POST", "/api/admin/index/refresh", nil, auth)

		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
		assert.Equal(t, []string{"admin"}, index.reasons)
	})

	t.Run("Should surface a queue failure as 500", func(t *testing.T) {
		app := newTestApp(nil, NewAdminController(&fakeIndex{err: errors.New("topic closed")}, nil, secret))

		resp, _ := doJSON(t, app, "POST", "/api/admin/index/refresh", nil, auth)

		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("Should report index status", func(t *testing.T) {
		app := newTestApp(nil, NewAdminController(&fakeIndex{}, nil, secret))

		resp, body := doJSON(t, app, "GET", "/api/admin/index/status", nil, auth)

		var got serverutils.Response[dto.IndexStatusResponse]
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, uint64(4), got.Data.Generation)
		assert.Equal(t, 250, got.Data.Chunks)
	})

	t.Run("Should require an admin token", func(t *testing.T) {
		index := &fakeIndex{}
		app := newTestApp(nil, NewAdminController(index, nil, secret))

		resp, _ := doJSON(t, app, "POST", "/api/admin/index/refresh", nil, nil)

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, index.reasons)
	})

	t.Run("Should publish a refresh request on the bus", func(t *testing.T) {
		bus := &fakeBus{}
		app := newTestApp(nil, NewAdminController(&fakeIndex{}, bus, secret))

		resp, _ := doJSON(t, app, "POST", "/api/admin/events/refresh-requested", map[string]string{"reason": "crawl"}, auth)

		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
		require.Len(t, bus.published, 1)
		assert.Equal(t, events.TypeIndexRefreshRequested, bus.published[0].EventType())
		assert.Equal(t, "crawl", bus.published[0].Payload()["reason"])
	})

	t.Run("Should answer 503 without a bus", func(t *testing.T) {
		app := newTestApp(nil, NewAdminController(&fakeIndex{}, nil, secret))

		resp, _ := doJSON(t, app, "POST", "/api/admin/events/refresh-requested", nil, auth)

		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}
