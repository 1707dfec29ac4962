package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smart-bartender/internal/repository"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrBadCredentials   = errors.New("invalid username or password")
	ErrUserExists       = errors.New("username already taken")
)

const tokenTTL = 24 * time.Hour

// Service is the authenticated-username resolver at the boundary of the
// queue core: it registers users, verifies logins, and turns bearer
// tokens back into usernames.
type Service struct {
	store  repository.Store
	secret []byte
	now    func() time.Time
}

func NewService(store repository.Store, secret string) *Service {
	return &Service{store: store, secret: []byte(secret), now: time.Now}
}

// EnsureDefaultAdmin seeds the admin account on first start.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if _, ok := users["admin"]; ok {
		return nil
	}
	users["admin"] = hashPassword("1234")
	if err := s.store.ReplaceUsers(ctx, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrBadCredentials
	}
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if _, ok := users[username]; ok {
		return ErrUserExists
	}
	users[username] = hashPassword(password)
	if err := s.store.ReplaceUsers(ctx, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// Login verifies credentials and issues a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("load users: %w", err)
	}
	want, ok := users[username]
	if !ok {
		return "", ErrBadCredentials
	}
	got := hashPassword(password)
	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return "", ErrBadCredentials
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolve extracts the username from the request's bearer token.
func (s *Service) Resolve(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", ErrNotAuthenticated
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if raw == "" {
		return "", ErrNotAuthenticated
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return "", ErrNotAuthenticated
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrNotAuthenticated
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrNotAuthenticated
	}
	return sub, nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
