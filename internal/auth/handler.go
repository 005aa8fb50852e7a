package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/pacelog/pacelog/internal/telemetry/metrics"
	"github.com/pacelog/pacelog/internal/telemetry/tracing"
	"github.com/pacelog/pacelog/pkg"
)

type CodeRequest struct {
	Email string `json:"email"`
}

type LoginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	authService    *Service
	metricsManager *metrics.Manager
}

func NewHandler(authService *Service, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		authService:    authService,
		metricsManager: metricsManager,
	}
}

// SetupRoutes registers the login endpoints. The code endpoints get
// wrapped with the provided rate limit middleware, guessing codes by
// brute force should not be cheap.
func (handler *Handler) SetupRoutes(
	router *mux.Router,
	loginLimit func(next http.Handler) http.Handler,
) {
	router.Handle(
		"/auth/code",
		loginLimit(http.HandlerFunc(handler.HandleRequestCode)),
	).Methods("POST", "OPTIONS").Name("request-login-code")
	router.Handle(
		"/auth/login",
		loginLimit(http.HandlerFunc(handler.HandleLogin)),
	).Methods("POST", "OPTIONS").Name("login")
	router.HandleFunc("/auth/logout", handler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")
}

func (handler *Handler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.requestcode")
	defer span.End()

	var req CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid-request")
		http.Error(w, "error, invalid request", http.StatusBadRequest)
		return
	}

	if err := handler.authService.RequestCode(ctx, req.Email); err != nil {
		if errors.Is(err, ErrInvalidEmail) {
			span.SetStatus(codes.Error, "invalid-email")
			http.Error(w, "error, invalid email", http.StatusBadRequest)
			return
		}
		log.Errorf("request login code: %s", err)
		span.SetStatus(codes.Error, "request-code-failed")
		span.RecordError(err)
		http.Error(w, "error, failed to send login code", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterLoginCodesRequested.Inc()
	span.SetStatus(codes.Ok, "code-sent")
	pkg.WriteTextResponseOK(w, "code sent")
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid-request")
		http.Error(w, "error, invalid request", http.StatusBadRequest)
		return
	}

	session, err := handler.authService.VerifyCode(ctx, req.Email, req.Code, time.Now())
	if err != nil {
		if errors.Is(err, ErrWrongCode) || errors.Is(err, ErrInvalidEmail) {
			span.SetStatus(codes.Error, "wrong-code")
			http.Error(w, "error, wrong code", http.StatusUnauthorized)
			return
		}
		log.Errorf("login failed: %s", err)
		span.SetStatus(codes.Error, "login-failed")
		span.RecordError(err)
		http.Error(w, "error, login failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("user %d logged in, new token", session.UserID)
	handler.metricsManager.CounterLoginCodesVerified.Inc()
	span.SetStatus(codes.Ok, "logged-in")

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"token": "%s"}`, session.Token))
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	authToken := r.Header.Get(TokenHeader)
	if authToken == "" {
		span.SetStatus(codes.Error, "missing-token")
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(ctx, authToken)
	if err != nil {
		log.Errorf("logout failed: %s", err)
		span.SetStatus(codes.Error, "logout-failed")
		span.RecordError(err)
		http.Error(w, "error, logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		span.SetStatus(codes.Error, "unknown-token")
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	span.SetStatus(codes.Ok, "logged-out")
	pkg.WriteTextResponseOK(w, "logged-out")
}
