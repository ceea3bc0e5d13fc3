package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/atifgpt/chat-platform/internal/middleware"
	"github.com/atifgpt/chat-platform/internal/model"
	"github.com/atifgpt/chat-platform/internal/service"
	"github.com/atifgpt/chat-platform/internal/store"
	"github.com/atifgpt/chat-platform/pkg/logger"
)

const testJWTSecret = "test-secret"

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(policy store.Policy) *chi.Mux {
	chatSvc := service.NewChatService(nil, policy, logger.Nop())
	h := NewChatHandler(chatSvc, logger.Nop())

	r := chi.NewRouter()
	r.Route("/api/v1/chats", func(r chi.Router) {
		r.Use(middleware.Auth(testJWTSecret))
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/hidden", h.ListHidden)
		r.Get("/current", h.Current)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Put("/select", h.Select)
			r.Put("/title", h.Rename)
			r.Put("/archive", h.Archive)
			r.Put("/hide", h.Hide)
			r.Put("/unhide", h.Unhide)
		})
	})
	return r
}

func doRequest(t *testing.T, router *chi.Mux, user, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createChat(t *testing.T, router *chi.Mux, user, title string) model.Chat {
	t.Helper()
	var body interface{}
	if title != "" {
		body = model.CreateChatRequest{Title: title}
	}
	rec := doRequest(t, router, user, http.MethodPost, "/api/v1/chats", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var chat model.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	return chat
}

func listChats(t *testing.T, router *chi.Mux, user, path string) model.ListChatsResponse {
	t.Helper()
	rec := doRequest(t, router, user, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ListChatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestChatsAPI_RequiresAuth(t *testing.T) {
	router := newTestRouter(store.Lenient)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatsAPI_CreateAndList(t *testing.T) {
	router := newTestRouter(store.Lenient)

	first := createChat(t, router, "u1", "")
	require.Equal(t, model.DefaultChatTitle, first.Title)
	second := createChat(t, router, "u1", "Trip planning")

	resp := listChats(t, router, "u1", "/api/v1/chats")
	require.Equal(t, 2, resp.Total)
	// Most recent first.
	require.Equal(t, second.ID, resp.Chats[0].ID)
	require.Equal(t, first.ID, resp.Chats[1].ID)

	// The latest created chat is selected.
	rec := doRequest(t, router, "u1", http.MethodGet, "/api/v1/chats/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var current model.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	require.Equal(t, second.ID, current.ID)
}

func TestChatsAPI_SearchFilter(t *testing.T) {
	router := newTestRouter(store.Lenient)

	createChat(t, router, "u1", "Trip to Lahore")
	createChat(t, router, "u1", "Recipe ideas")

	resp := listChats(t, router, "u1", "/api/v1/chats?q=lahore")
	require.Equal(t, 1, resp.Total)
	require.Equal(t, "Trip to Lahore", resp.Chats[0].Title)
}

func TestChatsAPI_Rename(t *testing.T) {
	router := newTestRouter(store.Lenient)
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/title",
		model.RenameChatRequest{Title: "Renamed"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, "u1", http.MethodGet, "/api/v1/chats/"+chat.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Renamed", got.Title)

	// A blank title is rejected before it reaches the store.
	rec = doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/title",
		model.RenameChatRequest{Title: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatsAPI_ArchiveToggle(t *testing.T) {
	router := newTestRouter(store.Lenient)
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary model.ChatSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.True(t, summary.Archived)

	// Archived chats leave the default listing and appear under archived=true.
	require.Equal(t, 0, listChats(t, router, "u1", "/api/v1/chats").Total)
	require.Equal(t, 1, listChats(t, router, "u1", "/api/v1/chats?archived=true").Total)

	// A second call toggles it back.
	rec = doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.False(t, summary.Archived)
}

func TestChatsAPI_HideUnhideFlow(t *testing.T) {
	router := newTestRouter(store.Lenient)
	chat := createChat(t, router, "u1", "Secret plans")

	rec := doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/hide",
		model.HideChatRequest{Password: "hunter2"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.Equal(t, 0, listChats(t, router, "u1", "/api/v1/chats").Total)
	hidden := listChats(t, router, "u1", "/api/v1/chats/hidden")
	require.Equal(t, 1, hidden.Total)
	require.Equal(t, "Secret plans", hidden.Chats[0].Title)

	// Hiding the selected chat clears the selection.
	rec = doRequest(t, router, "u1", http.MethodGet, "/api/v1/chats/current", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Wrong password is a silent no-op under the lenient policy.
	rec = doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/unhide",
		model.UnhideChatRequest{Password: "Hunter2"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, listChats(t, router, "u1", "/api/v1/chats/hidden").Total)

	rec = doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/unhide",
		model.UnhideChatRequest{Password: "hunter2"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	restored := listChats(t, router, "u1", "/api/v1/chats")
	require.Equal(t, 1, restored.Total)
	require.Equal(t, chat.ID, restored.Chats[0].ID)
	require.Equal(t, 0, listChats(t, router, "u1", "/api/v1/chats/hidden").Total)
}

func TestChatsAPI_StrictErrors(t *testing.T) {
	router := newTestRouter(store.Strict)
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/hide",
		model.HideChatRequest{Password: "hunter2"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Password mismatch surfaces as 403 under the strict policy.
	rec = doRequest(t, router, "u1", http.MethodPut, "/api/v1/chats/"+chat.ID+"/unhide",
		model.UnhideChatRequest{Password: "wrong"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown ids surface as 404.
	missing := "/api/v1/chats/0190f6a2-0000-7000-8000-000000000000"
	rec = doRequest(t, router, "u1", http.MethodPut, missing+"/title",
		model.RenameChatRequest{Title: "x"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatsAPI_Delete(t *testing.T) {
	router := newTestRouter(store.Lenient)
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodDelete, "/api/v1/chats/"+chat.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 0, listChats(t, router, "u1", "/api/v1/chats").Total)

	// Deleting again is idempotent.
	rec = doRequest(t, router, "u1", http.MethodDelete, "/api/v1/chats/"+chat.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChatsAPI_InvalidChatID(t *testing.T) {
	router := newTestRouter(store.Lenient)

	rec := doRequest(t, router, "u1", http.MethodGet, "/api/v1/chats/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatsAPI_UserIsolation(t *testing.T) {
	router := newTestRouter(store.Lenient)

	chat := createChat(t, router, "alice", "alice only")

	rec := doRequest(t, router, "bob", http.MethodGet, "/api/v1/chats/"+chat.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 0, listChats(t, router, "bob", "/api/v1/chats").Total)
}
