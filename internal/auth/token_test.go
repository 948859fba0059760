package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("test-secret")
	token, err := issuer.Issue("ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "ops@example.com" || claims.Role != RoleOperator {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Sub(claims.IssuedAt.Time) != time.Hour {
		t.Fatalf("unexpected expiry %+v", claims.RegisteredClaims)
	}
}

func TestIssueDefaultsTTL(t *testing.T) {
	issuer := NewIssuer("test-secret")
	token, err := issuer.Issue("ops", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultTokenTTL {
		t.Fatalf("ttl = %v", got)
	}
}

func TestIssueErrors(t *testing.T) {
	if _, err := NewIssuer("").Issue("ops", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, err := NewIssuer("s").Issue("", time.Hour); !errors.Is(err, ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject, got %v", err)
	}
}

func TestParseRejects(t *testing.T) {
	issuer := NewIssuer("test-secret")

	if _, err := issuer.Parse("not-a-token"); err == nil {
		t.Fatalf("expected error for garbage token")
	}

	other, _ := NewIssuer("other-secret").Issue("ops", time.Hour)
	if _, err := issuer.Parse(other); err == nil {
		t.Fatalf("expected error for foreign signature")
	}

	expiredIssuer := NewIssuer("test-secret")
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredIssuer.Issue("ops", time.Hour)
	if _, err := issuer.Parse(expired); err == nil {
		t.Fatalf("expected error for expired token")
	}

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, _ := noRole.SignedString([]byte("test-secret"))
	if _, err := issuer.Parse(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for missing role, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleOperator})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := issuer.Parse(unsigned); err == nil {
		t.Fatalf("expected error for unsigned token")
	}
}
