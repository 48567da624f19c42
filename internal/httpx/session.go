package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var errNoSession = errors.New("no session")

type Session struct {
	UserID string
	Role   string // "buyer" | "staff"
}

type sessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// parseSession membaca token HS256 dari header Authorization (Bearer) atau
// cookie "session". Plumbing login/penerbitan token ada di layanan lain;
// di sini cuma verifikasi.
func parseSession(r *http.Request, secret string) (Session, error) {
	raw := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	} else if c, err := r.Cookie("session"); err == nil {
		raw = c.Value
	}
	if raw == "" {
		return Session{}, errNoSession
	}

	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" {
		return Session{}, errNoSession
	}
	return Session{UserID: claims.Subject, Role: claims.Role}, nil
}
