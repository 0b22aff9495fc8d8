package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/globalbank/globalbank-be/internal/models"
)

// ErrInvalidToken covers expired, malformed, and wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the verified identity attached to a request.
type Claims struct {
	Email string
	Name  string
	Role  string
}

// TokenManager issues and verifies signed JWTs for authenticated users.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed JWT string carrying the user's email and role.
func (t *TokenManager) Generate(user models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  t.issuer,
		"sub":  user.Email,
		"name": user.FullName(),
		"role": user.Role,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a token string and returns its claims.
func (t *TokenManager) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	email, _ := mapClaims["sub"].(string)
	name, _ := mapClaims["name"].(string)
	role, _ := mapClaims["role"].(string)
	if email == "" || role == "" {
		return Claims{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return Claims{Email: email, Name: name, Role: role}, nil
}
