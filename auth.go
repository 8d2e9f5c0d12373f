package socialshare

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Authenticator resolves the caller of a request. The handlers only care
// whether a user id came back.
type Authenticator interface {
	Authenticate(c *fiber.Ctx) (userID string, ok bool)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(c *fiber.Ctx) (string, bool)

func (f AuthenticatorFunc) Authenticate(c *fiber.Ctx) (string, bool) {
	return f(c)
}

var _ Authenticator = &JWTAuthenticator{}

// JWTAuthenticator accepts HS256 session tokens from the Authorization
// header or the session cookie.
type JWTAuthenticator struct {
	secret     []byte
	cookieName string
	issuer     string
	now        func() time.Time
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret:     []byte(secret),
		cookieName: DefaultSessionCookie,
		now:        time.Now,
	}
}

func (a *JWTAuthenticator) WithCookieName(name string) *JWTAuthenticator {
	if name != "" {
		a.cookieName = name
	}
	return a
}

func (a *JWTAuthenticator) WithIssuer(issuer string) *JWTAuthenticator {
	a.issuer = issuer
	return a
}

func (a *JWTAuthenticator) CookieName() string {
	return a.cookieName
}

func (a *JWTAuthenticator) Authenticate(c *fiber.Ctx) (string, bool) {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		token = c.Cookies(a.cookieName)
	}

	if token == "" {
		return "", false
	}

	userID, err := a.Verify(token)
	if err != nil {
		return "", false
	}

	return userID, true
}

// Verify checks signature and expiry and returns the subject.
func (a *JWTAuthenticator) Verify(token string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("jwt: secret not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.timeNow),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("jwt: %w", err)
	}

	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("jwt: token has no subject")
	}

	return claims.Subject, nil
}

// IssueToken signs a session token for userID.
func (a *JWTAuthenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("jwt: secret not configured")
	}

	now := a.timeNow()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *JWTAuthenticator) timeNow() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
