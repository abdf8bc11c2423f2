package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/sparkplay/dominion-server-go/internal/game"
	"github.com/sparkplay/dominion-server-go/internal/spark"
)

type stubFetcher struct {
	err error
}

func (f stubFetcher) GetMessage(_ context.Context, id string) (*spark.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &spark.Message{ID: id, RoomID: "room1", PersonID: "alice", Text: "bot1 new"}, nil
}

type stubHandler struct {
	mu   sync.Mutex
	got  []*spark.Message
	fail error
}

func (h *stubHandler) Handle(_ context.Context, msg *spark.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, msg)
	return h.fail
}

func sign(secret, body string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func post(t *testing.T, router http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookDispatchesMessage(t *testing.T) {
	handler := &stubHandler{}
	router := NewRouter(HTTPOptions{Fetcher: stubFetcher{}, Handler: handler, Logger: zaptest.NewLogger(t)})

	rec := post(t, router, `{"id":"hook1","data":{"id":"msg1"}}`, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, handler.got, 1)
	assert.Equal(t, "msg1", handler.got[0].ID)
}

func TestWebhookErrors(t *testing.T) {
	logger := zaptest.NewLogger(t)

	router := NewRouter(HTTPOptions{Fetcher: stubFetcher{}, Handler: &stubHandler{}, Logger: logger})
	assert.Equal(t, http.StatusBadRequest, post(t, router, `{"data":{}}`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, router, `not json`, nil).Code)

	router = NewRouter(HTTPOptions{Fetcher: stubFetcher{err: errors.New("gone")}, Handler: &stubHandler{}, Logger: logger})
	assert.Equal(t, http.StatusInternalServerError, post(t, router, `{"data":{"id":"msg1"}}`, nil).Code)

	router = NewRouter(HTTPOptions{Fetcher: stubFetcher{}, Handler: &stubHandler{fail: errors.New("disk full")}, Logger: logger})
	assert.Equal(t, http.StatusInternalServerError, post(t, router, `{"data":{"id":"msg1"}}`, nil).Code)
}

func TestWebhookSignature(t *testing.T) {
	handler := &stubHandler{}
	router := NewRouter(HTTPOptions{
		Fetcher:       stubFetcher{},
		Handler:       handler,
		Logger:        zaptest.NewLogger(t),
		WebhookSecret: "s3cret",
	})
	body := `{"data":{"id":"msg1"}}`

	assert.Equal(t, http.StatusUnauthorized, post(t, router, body, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, post(t, router, body, map[string]string{signatureHeader: sign("wrong", body)}).Code)
	assert.Empty(t, handler.got)

	rec := post(t, router, body, map[string]string{signatureHeader: sign("s3cret", body)})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, handler.got, 1)
}

func TestHealthz(t *testing.T) {
	manager := game.NewManager(game.ManagerConfig{Logger: zaptest.NewLogger(t)})
	_, err := manager.Create("room1", "alice", "", 1)
	require.NoError(t, err)

	router := NewRouter(HTTPOptions{Manager: manager, Version: "test", Logger: zaptest.NewLogger(t)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, float64(1), body["active_games"])
}

func TestAdminGames(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	manager := game.NewManager(game.ManagerConfig{Logger: zaptest.NewLogger(t)})
	_, err = manager.Create("room1", "alice", "Al", 1)
	require.NoError(t, err)

	router := NewRouter(HTTPOptions{
		Manager:           manager,
		Logger:            zaptest.NewLogger(t),
		AdminUser:         "admin",
		AdminPasswordHash: string(hash),
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/games", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/games", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/games", nil)
	req.SetBasicAuth("admin", "hunter2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Games []game.Summary `json:"games"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Games, 1)
	assert.Equal(t, "room1", body.Games[0].Room)
	assert.Equal(t, "setup", body.Games[0].State)
}

func TestAdminDisabledWithoutHash(t *testing.T) {
	router := NewRouter(HTTPOptions{Logger: zaptest.NewLogger(t)})
	req := httptest.NewRequest(http.MethodGet, "/admin/games", nil)
	req.SetBasicAuth("admin", "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
