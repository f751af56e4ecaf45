package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")
)

// User is what the identity provider vouches for: a stable opaque id and a
// display email. The email is presentation data, never a key.
type User struct {
	ID    string `json:"user_id"`
	Email string `json:"email"`
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens minted by the external identity provider.
// HMAC only; any other signing method is rejected.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth secret cannot be empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

func (v *Verifier) Verify(tokenString string) (User, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return User{}, ErrTokenExpired
		}
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || c.Subject == "" {
		return User{}, ErrInvalidToken
	}
	return User{ID: c.Subject, Email: c.Email}, nil
}

// Sign mints a token for a user. The real identity provider issues tokens
// in production; this serves tests and the sim player.
func (v *Verifier) Sign(user User, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}
