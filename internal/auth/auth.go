// Package auth проверяет учётные данные администратора консоли.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials возвращается при неверном логине или пароле.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator проверяет логин и пароль.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// StaticAuthenticator сверяет учётные данные с одной настроенной парой логин/bcrypt-хеш.
type StaticAuthenticator struct {
	username string
	hash     []byte
}

// NewStaticAuthenticator создаёт проверку для логина и bcrypt-хеша пароля.
func NewStaticAuthenticator(username, passwordHash string) (*StaticAuthenticator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("admin username is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	return &StaticAuthenticator{username: username, hash: []byte(passwordHash)}, nil
}

// Authenticate возвращает ErrInvalidCredentials, если логин или пароль не совпадают.
func (a *StaticAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	// Хеш сверяется и при неверном логине, чтобы время ответа не выдавало логин.
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword возвращает bcrypt-хеш пароля для настройки ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
