package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pacelog/pacelog/internal/auth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestAuthMiddleware_AllowedPathsSkipCheck(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer rdb.Close()
	handler := NewAuthMiddlewareHandler(auth.NewLoginChecker(time.Hour, rdb))

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/code", nil)
	rec := httptest.NewRecorder()
	handler.AuthCheck()(next).ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer rdb.Close()
	handler := NewAuthMiddlewareHandler(auth.NewLoginChecker(time.Hour, rdb))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	rec := httptest.NewRecorder()
	handler.AuthCheck()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_ValidTokenInjectsUser(t *testing.T) {
	rdb, rdbMock := redismock.NewClientMock()
	defer rdb.Close()
	handler := NewAuthMiddlewareHandler(auth.NewLoginChecker(time.Hour, rdb))

	token := "test-token"
	rdbMock.ExpectGet("pacelog-session||" + token).SetVal(
		fmt.Sprintf("%d||%d", 42, time.Now().Unix()),
	)

	var gotUserID int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		require.True(t, ok)
		gotUserID = userID
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.Header.Set(auth.TokenHeader, token)
	rec := httptest.NewRecorder()
	handler.AuthCheck()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42, gotUserID)
	assert.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestAuthMiddleware_TokenFromQueryParam(t *testing.T) {
	rdb, rdbMock := redismock.NewClientMock()
	defer rdb.Close()
	handler := NewAuthMiddlewareHandler(auth.NewLoginChecker(time.Hour, rdb))

	token := "feed-token"
	rdbMock.ExpectGet("pacelog-session||" + token).SetVal(
		fmt.Sprintf("%d||%d", 7, time.Now().Unix()),
	)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := auth.UserIDFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/activities/feed?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.AuthCheck()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	rdb, rdbMock := redismock.NewClientMock()
	defer rdb.Close()
	handler := NewAuthMiddlewareHandler(auth.NewLoginChecker(time.Hour, rdb))

	rdbMock.ExpectGet("pacelog-session||bad-token").RedisNil()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.Header.Set(auth.TokenHeader, "bad-token")
	rec := httptest.NewRecorder()
	handler.AuthCheck()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, rdbMock.ExpectationsWereMet())
}

func TestAuthMiddleware_Options(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer rdb.Close()
	handler := NewAuthMiddlewareHandler(auth.NewLoginChecker(time.Hour, rdb))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not be called")
	})

	req := httptest.NewRequest(http.MethodOptions, "/activities", nil)
	rec := httptest.NewRecorder()
	handler.AuthCheck()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Allow"))
}
