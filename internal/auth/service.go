package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/pacelog/pacelog/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// TokenHeader carries the session token. A non-standard header is used
// on purpose, it makes the browser send a preflight request:
//	https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS#preflighted_requests
const TokenHeader = "X-PACELOG-TOKEN"

const (
	DefaultTTL     = 24 * 7 * time.Hour
	DefaultCodeTTL = 10 * time.Minute

	sessionKeyPrefix   = "pacelog-session||"
	tokensSetKey       = "pacelog-sessions"
	loginCodeKeyPrefix = "pacelog-login-code||"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrWrongCode    = errors.New("wrong or expired login code")
)

type LoginSession struct {
	Token     string
	UserID    int
	CreatedAt time.Time
}

type usersRepo interface {
	EnsureUser(ctx context.Context, email string, createdAt time.Time) (int, error)
}

// Service implements the one-time email code login flow: a short numeric
// code is mailed to the user and kept hashed in redis until verified or
// expired. Verified logins get a session token, also kept in redis.
type Service struct {
	redisClient *redis.Client
	users       usersRepo
	mailer      Mailer
	ttl         time.Duration
	codeTTL     time.Duration
	codeDigits  int
	// ability to inject random generator funcs (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
	GenCodeFunc    func(digits int) (string, error)
}

type NewServiceParams struct {
	RedisClient *redis.Client
	Users       usersRepo
	Mailer      Mailer
	SessionTTL  time.Duration
	CodeTTL     time.Duration
	CodeDigits  int
}

func NewService(params NewServiceParams) *Service {
	if params.SessionTTL == 0 {
		params.SessionTTL = DefaultTTL
	}
	if params.CodeTTL == 0 {
		params.CodeTTL = DefaultCodeTTL
	}
	if params.CodeDigits == 0 {
		params.CodeDigits = 6
	}
	return &Service{
		redisClient:    params.RedisClient,
		users:          params.Users,
		mailer:         params.Mailer,
		ttl:            params.SessionTTL,
		codeTTL:        params.CodeTTL,
		codeDigits:     params.CodeDigits,
		RandStringFunc: pkg.GenerateRandomString,
		GenCodeFunc:    pkg.GenerateLoginCode,
	}
}

// RequestCode generates a one-time login code for the given email and
// sends it through the mailer. A new request overwrites the previous
// code for the same email.
func (as *Service) RequestCode(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	code, err := as.GenCodeFunc(as.codeDigits)
	if err != nil {
		return fmt.Errorf("generate login code: %w", err)
	}

	codeHash, err := pkg.HashLoginCode(code)
	if err != nil {
		return fmt.Errorf("hash login code: %w", err)
	}

	codeKey := loginCodeKeyPrefix + email
	cmdSet := as.redisClient.Set(ctx, codeKey, codeHash, as.codeTTL)
	if err := cmdSet.Err(); err != nil {
		return err
	}

	if err := as.mailer.SendLoginCode(ctx, email, code); err != nil {
		return fmt.Errorf("send login code: %w", err)
	}

	return nil
}

// VerifyCode checks the code against the stored hash and, on match,
// consumes it and opens a new session. The code is single use.
func (as *Service) VerifyCode(
	ctx context.Context, email, code string, createdAt time.Time,
) (*LoginSession, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	codeKey := loginCodeKeyPrefix + email
	cmdGet := as.redisClient.Get(ctx, codeKey)
	if err := cmdGet.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrWrongCode
		}
		return nil, err
	}

	if !pkg.CheckLoginCodeHash(code, cmdGet.Val()) {
		return nil, ErrWrongCode
	}

	if err := as.redisClient.Del(ctx, codeKey).Err(); err != nil {
		log.Errorf("auth service, delete used login code: %s", err)
	}

	userID, err := as.users.EnsureUser(ctx, email, createdAt)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	token, err := as.RandStringFunc(35)
	if err != nil {
		return nil, err
	}

	sessionKey := sessionKeyPrefix + token
	sessionVal := fmt.Sprintf("%d||%d", userID, createdAt.Unix())
	cmdSet := as.redisClient.Set(ctx, sessionKey, sessionVal, 0)
	if err := cmdSet.Err(); err != nil {
		return nil, err
	}

	// add token to list of sessions
	cmdSAdd := as.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return nil, err
	}

	return &LoginSession{
		Token:     token,
		UserID:    userID,
		CreatedAt: createdAt,
	}, nil
}

func (as *Service) Logout(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := as.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	cmdDel := as.redisClient.Del(ctx, sessionKey)
	if err := cmdDel.Err(); err != nil {
		return false, err
	}

	// remove token from the list of sessions
	cmdSRem := as.redisClient.SRem(ctx, tokensSetKey, token)
	if err := cmdSRem.Err(); err != nil {
		return false, err
	}

	return true, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (as *Service) ScanAndClean(ctx context.Context) {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Warnln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Warnf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		sessionKey := sessionKeyPrefix + token
		cmd := as.redisClient.Get(ctx, sessionKey)
		if err := cmd.Err(); err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		_, createdAt, err := parseSessionValue(cmd.Val())
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			toRemove = append(toRemove, token)
			continue
		}

		if time.Since(createdAt) > as.ttl {
			log.Warnf("=>\twill clean the session with token: %s", token)
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		sessionKey := sessionKeyPrefix + token
		cmdDel := as.redisClient.Del(ctx, sessionKey)
		if err := cmdDel.Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}

		cmdSRem := as.redisClient.SRem(ctx, tokensSetKey, token)
		if err := cmdSRem.Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}
	}
}

// NormalizeEmail lowercases and trims the address and validates its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func parseSessionValue(val string) (userID int, createdAt time.Time, err error) {
	parts := strings.Split(val, "||")
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("malformed session value: %q", val)
	}

	userID, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed session user id: %q", val)
	}

	createdAtUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed session timestamp: %q", val)
	}

	return userID, time.Unix(createdAtUnix, 0), nil
}
