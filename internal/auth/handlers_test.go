package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestAuthVerify(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), "test-secret")

	token, _ := NewIssuer("test-secret").Issue("ops", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ok, got %d", resp.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["subject"] != "ops" || body["auth_enabled"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAuthVerifyMissingBearer(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), "test-secret")

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/auth/verify", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}
}

func TestAuthVerifyDisabled(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), "")

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/auth/verify", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ok, got %d", resp.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["auth_enabled"] != false {
		t.Fatalf("unexpected body %v", body)
	}
}
