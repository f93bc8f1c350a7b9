package auth

import (
	"testing"
	"time"
)

func testIssuer() *Issuer {
	return NewIssuer(IssuerConfig{
		Secret:     "test-secret-test-secret-test-secret",
		Issuer:     "medrec",
		Audience:   "medrec-api",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 168 * time.Hour,
	})
}

func TestIssuePair_AccessValidates(t *testing.T) {
	issuer := testIssuer()
	pair, err := issuer.IssuePair("user-1", "alice", []string{"admin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("expected Bearer, got %s", pair.TokenType)
	}
	if pair.ExpiresIn != 900 {
		t.Errorf("expected 900s expiry, got %d", pair.ExpiresIn)
	}

	claims, err := issuer.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Errorf("unexpected roles: %v", claims.Roles)
	}
}

func TestRefreshTokenRejectedOnAccessPath(t *testing.T) {
	issuer := testIssuer()
	pair, err := issuer.IssuePair("user-1", "alice", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := issuer.ValidateAccess(pair.RefreshToken); err == nil {
		t.Error("expected refresh token to be rejected on access path")
	}
	if _, err := issuer.ValidateRefresh(pair.AccessToken); err == nil {
		t.Error("expected access token to be rejected on refresh path")
	}
	if _, err := issuer.ValidateRefresh(pair.RefreshToken); err != nil {
		t.Errorf("expected refresh token to validate: %v", err)
	}
}

func TestValidateAccess_WrongSecret(t *testing.T) {
	pair, err := testIssuer().IssuePair("user-1", "alice", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewIssuer(IssuerConfig{
		Secret:     "another-secret-another-secret-anoth",
		Issuer:     "medrec",
		Audience:   "medrec-api",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	if _, err := other.ValidateAccess(pair.AccessToken); err == nil {
		t.Error("expected signature mismatch to fail")
	}
}

func TestValidateAccess_Expired(t *testing.T) {
	issuer := NewIssuer(IssuerConfig{
		Secret:     "test-secret-test-secret-test-secret",
		Issuer:     "medrec",
		Audience:   "medrec-api",
		AccessTTL:  -time.Minute,
		RefreshTTL: time.Hour,
	})
	pair, err := issuer.IssuePair("user-1", "alice", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.ValidateAccess(pair.AccessToken); err == nil {
		t.Error("expected expired token to fail")
	}
}

func TestValidateAccess_WrongIssuer(t *testing.T) {
	other := NewIssuer(IssuerConfig{
		Secret:     "test-secret-test-secret-test-secret",
		Issuer:     "someone-else",
		Audience:   "medrec-api",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	pair, err := other.IssuePair("user-1", "alice", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := testIssuer().ValidateAccess(pair.AccessToken); err == nil {
		t.Error("expected issuer mismatch to fail")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "hunter2" {
		t.Error("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "hunter2") {
		t.Error("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}
