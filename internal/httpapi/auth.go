package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// TokenVerifier checks the access tokens issued by the hosted identity
// provider. Tokens are HS256 with the caller's address in the email claim.
type TokenVerifier struct {
	secret   []byte
	audience string
}

type identityClaims struct {
	jwtlib.RegisteredClaims
	Email string `json:"email"`
}

func NewTokenVerifier(secret, audience string) *TokenVerifier {
	if secret == "" {
		secret = "dev-change-me"
	}
	return &TokenVerifier{secret: []byte(secret), audience: strings.TrimSpace(audience)}
}

// Verify returns the lower-cased email of a valid token.
func (v *TokenVerifier) Verify(tokenStr string) (string, error) {
	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithExpirationRequired()}
	if v.audience != "" {
		opts = append(opts, jwtlib.WithAudience(v.audience))
	}

	claims := &identityClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return "", errors.New("token has no email claim")
	}
	return email, nil
}

// Sign issues a token in the identity provider's shape. Used for local
// development and by the admin CLI.
func (v *TokenVerifier) Sign(email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	now := time.Now().UTC()
	claims := identityClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   strings.ToLower(strings.TrimSpace(email)),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
	if v.audience != "" {
		claims.Audience = jwtlib.ClaimStrings{v.audience}
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(v.secret)
}
