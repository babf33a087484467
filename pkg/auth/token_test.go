package auth_test

import (
	"testing"
	"time"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/auth"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/auth/authtest"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/config"
)

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret: "secret",
		Issuer:    "https://identity.example.com",
		Audience:  "authenticated",
		AdminRole: "admin",
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()

	token, err := authtest.Mint(cfg, now, authtest.Payload{
		UserID: "user-123",
		Email:  "buyer@example.com",
		Role:   "admin",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := auth.ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID() != "user-123" {
		t.Fatalf("expected subject user-123, got %q", claims.UserID())
	}
	if claims.Email != "buyer@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if !claims.HasRole(cfg.AdminRole) {
		t.Fatalf("expected admin role, got %q", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("issuer mismatch: %q", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	token, err := authtest.Mint(cfg, time.Now(), authtest.Payload{UserID: "user-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.JWTSecret = "different"
	if _, err := auth.ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testConfig()
	token, err := authtest.Mint(cfg, time.Now().Add(-2*time.Hour), authtest.Payload{UserID: "user-1", TTL: time.Hour})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := auth.ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAccessTokenRejectsWrongAudience(t *testing.T) {
	cfg := testConfig()
	token, err := authtest.Mint(cfg, time.Now(), authtest.Payload{UserID: "user-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Audience = "service_role"
	if _, err := auth.ParseAccessToken(other, token); err == nil {
		t.Fatal("expected audience mismatch to fail")
	}
}

func TestMintRequiresUser(t *testing.T) {
	if _, err := authtest.Mint(testConfig(), time.Now(), authtest.Payload{}); err == nil {
		t.Fatal("expected missing user id to fail")
	}
}

func TestHasRoleIsCaseInsensitive(t *testing.T) {
	c := &auth.AccessTokenClaims{Role: " Admin "}
	if !c.HasRole("admin") {
		t.Fatal("expected role match")
	}
	var nilClaims *auth.AccessTokenClaims
	if nilClaims.HasRole("admin") {
		t.Fatal("nil claims never match")
	}
}
