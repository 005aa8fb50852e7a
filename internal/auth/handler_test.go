package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacelog/pacelog/internal/telemetry/metrics"
)

func newTestHandler(t *testing.T) (*Handler, redismock.ClientMock, *captureMailer) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		_ = db.Close()
	})

	mailer := &captureMailer{}
	authService := NewService(NewServiceParams{
		RedisClient: db,
		Users:       &fakeUsersRepo{userID: 7},
		Mailer:      mailer,
	})
	authService.GenCodeFunc = func(digits int) (string, error) {
		return "483920", nil
	}

	return NewHandler(authService, metrics.NewTestManager()), mock, mailer
}

func TestHandleRequestCode(t *testing.T) {
	handler, mock, mailer := newTestHandler(t)

	mock.Regexp().
		ExpectSet("pacelog-login-code||user@test.com", `^\$2a\$.+`, DefaultCodeTTL).
		SetVal("OK")

	req := httptest.NewRequest(
		http.MethodPost, "/auth/code",
		strings.NewReader(`{"email": "user@test.com"}`),
	)
	rec := httptest.NewRecorder()
	handler.HandleRequestCode(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "code sent", rec.Body.String())
	assert.Equal(t, "483920", mailer.code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRequestCode_InvalidEmail(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(
		http.MethodPost, "/auth/code",
		strings.NewReader(`{"email": "not-an-email"}`),
	)
	rec := httptest.NewRecorder()
	handler.HandleRequestCode(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLogin_WrongCode(t *testing.T) {
	handler, mock, _ := newTestHandler(t)

	mock.ExpectGet("pacelog-login-code||user@test.com").RedisNil()

	req := httptest.NewRequest(
		http.MethodPost, "/auth/login",
		strings.NewReader(`{"email": "user@test.com", "code": "111111"}`),
	)
	rec := httptest.NewRecorder()
	handler.HandleLogin(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleLogout(t *testing.T) {
	handler, mock, _ := newTestHandler(t)

	token := "test_token"
	sessionKey := sessionKeyPrefix + token
	mock.ExpectGet(sessionKey).SetVal(fmt.Sprintf("7||%d", time.Now().Unix()))
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, token).SetVal(1)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set(TokenHeader, token)
	rec := httptest.NewRecorder()
	handler.HandleLogout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logged-out", rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleLogout_NoToken(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.HandleLogout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
