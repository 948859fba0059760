package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleOperator    = "operator"
	DefaultTokenTTL = 24 * time.Hour
)

var (
	ErrNoSecret     = errors.New("jwt secret not configured")
	ErrNoSubject    = errors.New("subject required")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims identify an operator allowed to control tracking runs.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue signs an HS256 operator token for subject.
func (i *Issuer) Issue(subject string, ttl time.Duration) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrNoSecret
	}
	if subject == "" {
		return "", ErrNoSubject
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := i.now()
	claims := Claims{
		Role: RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) Parse(token string) (*Claims, error) {
	return parseClaims(i.secret, token)
}

func parseClaims(secret []byte, token string) (*Claims, error) {
	parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Role != RoleOperator {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
