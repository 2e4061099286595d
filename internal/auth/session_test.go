package auth

import (
	"testing"
	"time"
)

func TestVerifyOperatorToken_RoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tok, err := IssueOperatorToken("staff-7", RoleReceptionist, "backoffice", "secret", 10*time.Minute, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	op, err := VerifyOperatorToken(tok, "backoffice", "secret", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if op.Subject != "staff-7" || op.Role != RoleReceptionist {
		t.Fatalf("unexpected operator: %+v", op)
	}
}

func TestVerifyOperatorToken_Rejects(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tok, err := IssueOperatorToken("staff-7", RoleManager, "backoffice", "secret", time.Minute, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := VerifyOperatorToken(tok, "backoffice", "secret", now.Add(2*time.Minute)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
	if _, err := VerifyOperatorToken(tok, "other-app", "secret", now); err == nil {
		t.Fatalf("expected audience mismatch to fail")
	}
	if _, err := VerifyOperatorToken(tok, "backoffice", "wrong", now); err == nil {
		t.Fatalf("expected bad signature to fail")
	}
	if _, err := VerifyOperatorToken(tok, "backoffice", "", now); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestVerifyOperatorToken_UnknownRole(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tok, err := IssueOperatorToken("staff-7", Role("janitor"), "", "secret", time.Minute, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifyOperatorToken(tok, "", "secret", now); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}
