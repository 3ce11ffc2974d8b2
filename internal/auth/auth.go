package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClientTokenTTL bounds how long a browser keeps its console identity.
const ClientTokenTTL = 30 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Signer issues and verifies the console's `session` cookie. The cookie identifies the
// browser (subject = client id) and, with the cookie storage driver, carries the sealed
// session items.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

type clientClaims struct {
	Items map[string]string `json:"items,omitempty"`
	jwt.RegisteredClaims
}

func (s *Signer) IssueToken(clientID string, items map[string]string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("cookie secret not set")
	}
	if clientID == "" {
		return "", errors.New("empty client id")
	}
	now := s.now()
	claims := clientClaims{
		Items: items,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ClientTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Signer) ParseToken(tok string) (clientID string, items map[string]string, err error) {
	if len(s.secret) == 0 {
		return "", nil, errors.New("cookie secret not set")
	}
	var claims clientClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", nil, errors.New("no sub")
	}
	if claims.Items == nil {
		claims.Items = map[string]string{}
	}
	return claims.Subject, claims.Items, nil
}
