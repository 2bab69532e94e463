package service

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret", 15*time.Minute)

	token, err := svc.IssueToken("12345678901")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cpf, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if cpf != "12345678901" {
		t.Errorf("expected cpf 12345678901, got %s", cpf)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)
	issued := time.Now()
	svc.now = func() time.Time { return issued }

	token, err := svc.IssueToken("12345678901")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = svc.VerifyToken(token)
	var ue *domain.ErrUnauthorized
	if !errors.As(err, &ue) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Minute).IssueToken("12345678901")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := NewTokenService("secret-b", time.Minute).VerifyToken(token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)
	if _, err := svc.VerifyToken("not.a.token"); err == nil {
		t.Fatal("expected error")
	}
}
