package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokens issues and checks the bearer tokens handed out by /api/login and
// /api/register. The key lives only as long as the process.
type tokens struct {
	key []byte
}

func newTokens() *tokens {
	k := make([]byte, 32)
	_, _ = rand.Read(k)
	return &tokens{key: k}
}

func (t *tokens) issue(email string) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "apimock",
		"sub": email,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// subject returns the email the request's bearer token was issued for.
func (t *tokens) subject(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("missing bearer token")
	}
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("apimock"))
	if err != nil {
		return "", err
	}
	return tok.Claims.GetSubject()
}
