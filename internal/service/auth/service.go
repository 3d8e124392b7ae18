// Package auth manages accounts and the session tokens that carry the
// caller's namespace into every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
)

const (
	minPasswordLength = 6
	maxUsernameLength = 64
	issuer            = "packwrap"
)

var (
	ErrInvalidArguments   = errors.New("username and password are required")
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service signs users up, logs them in and validates their tokens.
type Service struct {
	mu     sync.Mutex
	store  kv.Store
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the auth service.
func NewService(store kv.Store, secret string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Signup registers a new account under its canonical username.
func (s *Service) Signup(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	canonical := models.CanonicalUsername(username)
	if canonical == "" || utf8.RuneCountInString(canonical) > maxUsernameLength || strings.ContainsAny(canonical, "/ ") {
		return models.User{}, ErrInvalidArguments
	}
	// Names starting with "_" are reserved for internal namespaces.
	if strings.HasPrefix(canonical, "_") {
		return models.User{}, fmt.Errorf("%w: username must not start with \"_\"", ErrInvalidArguments)
	}
	if len(password) < minPasswordLength {
		return models.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArguments, minPasswordLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing models.User
	found, err := s.store.Get(ctx, kv.NamespaceUsers, canonical, &existing)
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if found {
		return models.User{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Canonical:    canonical,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Set(ctx, kv.NamespaceUsers, canonical, user); err != nil {
		return models.User{}, fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("user signed up", zap.String("username", canonical))
	return user, nil
}

// Login checks the password and issues a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	canonical := models.CanonicalUsername(username)
	if canonical == "" || password == "" {
		return Session{}, ErrInvalidArguments
	}

	var user models.User
	found, err := s.store.Get(ctx, kv.NamespaceUsers, canonical, &user)
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !found || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Warn("login failed", zap.String("username", canonical))
		return Session{}, ErrInvalidCredentials
	}

	issued := s.now()
	expires := issued.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   canonical,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}

	return Session{Token: token, Username: user.Username, ExpiresAt: expires.UTC()}, nil
}

// Validate verifies a token and returns the canonical username it was issued to.
func (s *Service) Validate(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
