package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
)

func TestRegisterCreatesInactiveAccountAndMailsToken(t *testing.T) {
	svc, queries, mailer := newTestService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ana", "Ana@Example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.Role != RoleCustomer {
		t.Fatalf("unexpected role: %s", user.Role)
	}
	if user.IsActive {
		t.Fatal("account should start inactive")
	}
	if mailer.tokenFor("ana@example.com") == "" {
		t.Fatal("expected activation token to be mailed")
	}
	if len(queries.activations) != 1 {
		t.Fatalf("expected 1 stored activation token, got %d", len(queries.activations))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, "Ana Again", "ana@example.com", "password456")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "EMAIL_ALREADY_USED" {
		t.Fatalf("expected EMAIL_ALREADY_USED, got %v", err)
	}
}

func TestLoginRequiresActivation(t *testing.T) {
	svc, _, mailer := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, "ana@example.com", "password123", "ua", "ip")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "ACCOUNT_NOT_ACTIVE" {
		t.Fatalf("expected ACCOUNT_NOT_ACTIVE, got %v", err)
	}

	if err := svc.Activate(ctx, mailer.tokenFor("ana@example.com")); err != nil {
		t.Fatalf("activate: %v", err)
	}
	result, err := svc.Login(ctx, "ana@example.com", "password123", "ua", "ip")
	if err != nil {
		t.Fatalf("login after activation: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected token pair after login")
	}
}

func TestActivateTokenSingleUse(t *testing.T) {
	svc, _, mailer := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token := mailer.tokenFor("ana@example.com")
	if err := svc.Activate(ctx, token); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	err := svc.Activate(ctx, token)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_TOKEN" {
		t.Fatalf("expected INVALID_TOKEN on reuse, got %v", err)
	}
}

func TestActivateTokenExpires(t *testing.T) {
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	svc, _, mailer := newTestService(t, now)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	current = current.Add(defaultActivationTTL + time.Hour)
	err := svc.Activate(ctx, mailer.tokenFor("ana@example.com"))
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_TOKEN" {
		t.Fatalf("expected INVALID_TOKEN after expiry, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, mailer := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Activate(ctx, mailer.tokenFor("ana@example.com")); err != nil {
		t.Fatalf("activate: %v", err)
	}

	_, err := svc.Login(ctx, "ana@example.com", "wrong-password", "ua", "ip")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}
}
