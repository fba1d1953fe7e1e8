// Package auth handles user accounts and the single persisted session.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/kvstore"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrEmptyUsername      = errors.New("empty username")
	ErrEmptyEmail         = errors.New("empty email")
	ErrWeakPassword       = errors.New("password too short (min 6 characters)")
)

const tempPasswordLength = 12

// Mailer delivers the temporary password during a reset. The Gmail client
// implements it in production; tests substitute a recorder.
type Mailer interface {
	SendTempPassword(ctx context.Context, to, username, tempPassword string) error
}

// Service owns the users collection and the current-session marker.
type Service struct {
	mu     sync.Mutex
	kv     *kvstore.Store
	mailer Mailer
}

func New(kv *kvstore.Store, mailer Mailer) *Service {
	return &Service{kv: kv, mailer: mailer}
}

// Register creates an account. The username is checked before the email so a
// caller colliding on both sees the username error.
func (s *Service) Register(ctx context.Context, username, email, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" {
		return core.User{}, ErrEmptyUsername
	}
	if email == "" {
		return core.User{}, ErrEmptyEmail
	}
	if len(password) < 6 {
		return core.User{}, ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return core.User{}, ErrUsernameTaken
		}
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return core.User{}, ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := core.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	users = append(users, user)
	if err := s.kv.Put(ctx, kvstore.KeyUsers, users); err != nil {
		return core.User{}, fmt.Errorf("persist users: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID, "username", username)
	return user, nil
}

// Login verifies the password and persists the session. Unknown username and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return core.User{}, ErrInvalidCredentials
		}
		if err := s.kv.Put(ctx, kvstore.KeyCurrentUser, u.ID); err != nil {
			return core.User{}, fmt.Errorf("persist session: %w", err)
		}
		slog.InfoContext(ctx, "User logged in", "user_id", u.ID)
		return u, nil
	}
	return core.User{}, ErrInvalidCredentials
}

// Logout clears the session. Logging out while logged out is fine.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, kvstore.KeyCurrentUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CurrentUser resolves the persisted session to a user. A stale session
// pointing at a deleted user reads as not authenticated.
func (s *Service) CurrentUser(ctx context.Context) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	if err := s.kv.Get(ctx, kvstore.KeyCurrentUser, &id); err != nil {
		return core.User{}, fmt.Errorf("load session: %w", err)
	}
	if id == "" {
		return core.User{}, ErrNotAuthenticated
	}

	users, err := s.loadUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, ErrNotAuthenticated
}

// IsAuthenticated reports whether a session resolves to an existing user.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	_, err := s.CurrentUser(ctx)
	return err == nil
}

// ResetPassword generates a temporary password for the account matching the
// given username or email, persists the new hash, and mails the password out.
// The boolean tells the transport layer whether anything happened; it must
// not leak into the response body.
func (s *Service) ResetPassword(ctx context.Context, usernameOrEmail string) (bool, error) {
	needle := strings.TrimSpace(usernameOrEmail)

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return false, err
	}

	for i := range users {
		u := users[i]
		if u.Username != needle && !strings.EqualFold(u.Email, needle) {
			continue
		}

		temp, err := generateTempPassword()
		if err != nil {
			return false, fmt.Errorf("generate temp password: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
		if err != nil {
			return false, fmt.Errorf("hash temp password: %w", err)
		}
		users[i].PasswordHash = string(hash)
		if err := s.kv.Put(ctx, kvstore.KeyUsers, users); err != nil {
			return false, fmt.Errorf("persist users: %w", err)
		}

		if s.mailer != nil {
			if err := s.mailer.SendTempPassword(ctx, u.Email, u.Username, temp); err != nil {
				return false, fmt.Errorf("send temp password: %w", err)
			}
		}

		slog.InfoContext(ctx, "Password reset", "user_id", u.ID)
		return true, nil
	}

	return false, nil
}

// ChangePassword replaces the password of an authenticated user after
// verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 6 {
		return ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID != userID {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(users[i].PasswordHash), []byte(current)) != nil {
			return ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		users[i].PasswordHash = string(hash)
		if err := s.kv.Put(ctx, kvstore.KeyUsers, users); err != nil {
			return fmt.Errorf("persist users: %w", err)
		}
		return nil
	}
	return core.ErrNotFound
}

// Users returns every registered account. Intended for admin tooling.
func (s *Service) Users(ctx context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsers(ctx)
}

func (s *Service) loadUsers(ctx context.Context) ([]core.User, error) {
	var users []core.User
	if err := s.kv.Get(ctx, kvstore.KeyUsers, &users); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

const tempPasswordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

func generateTempPassword() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for i := 0; i < tempPasswordLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(tempPasswordAlphabet[n.Int64()])
	}
	return b.String(), nil
}
