package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/souvikree/notifly-backend/pkg/config"
)

func testJWTConfig() config.AdminJWTConfig {
	return config.AdminJWTConfig{
		Secret:            "test-secret",
		Issuer:            "notifly",
		ExpirationMinutes: 60,
	}
}

func TestMintAndParseAdminToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()

	token, err := MintAdminToken(cfg, now, "ops@notifly.io")
	if err != nil {
		t.Fatalf("MintAdminToken: %v", err)
	}

	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAdminToken: %v", err)
	}
	if claims.Actor != "ops@notifly.io" {
		t.Fatalf("unexpected actor %q", claims.Actor)
	}
	if claims.Role != AdminRole {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if claims.Issuer != "notifly" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestMintAdminToken_RequiresSecretAndActor(t *testing.T) {
	cfg := testJWTConfig()

	if _, err := MintAdminToken(config.AdminJWTConfig{Issuer: "notifly", ExpirationMinutes: 60}, time.Now(), "ops@notifly.io"); err == nil {
		t.Fatal("expected error without secret")
	}
	if _, err := MintAdminToken(cfg, time.Now(), "   "); err == nil {
		t.Fatal("expected error without actor")
	}
}

func TestParseAdminToken_RejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now(), "ops@notifly.io")
	if err != nil {
		t.Fatalf("MintAdminToken: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAdminToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestParseAdminToken_RejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now().Add(-2*time.Hour), "ops@notifly.io")
	if err != nil {
		t.Fatalf("MintAdminToken: %v", err)
	}

	_, err = ParseAdminToken(cfg, token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}
