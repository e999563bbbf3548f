package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/rewear/internal/db"
	"github.com/erazemk/rewear/internal/store"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 characters, got %d", len(a))
	}
	b, _ := generatePassword(16)
	if a == b {
		t.Error("expected different passwords")
	}
}

func TestCreateAdmin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	password, err := createAdmin(ctx, database, "Admin", "admin@example.com")
	if err != nil {
		t.Fatalf("createAdmin: %v", err)
	}

	admin, err := store.GetUserByEmail(ctx, database, "admin@example.com")
	if err != nil || admin == nil {
		t.Fatalf("admin not stored: %v", err)
	}
	if !admin.IsAdmin() {
		t.Errorf("expected admin role, got %q", admin.Role)
	}
	if admin.Points != 0 {
		t.Errorf("expected admin to start with 0 points, got %d", admin.Points)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		t.Error("stored hash does not match generated password")
	}
}

func TestLevelRouter(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(&levelRouter{
		stdout: slog.NewTextHandler(&out, nil),
		stderr: slog.NewTextHandler(&errOut, nil),
	}).With("component", "test")

	logger.Debug("hidden")
	logger.Info("hello")
	logger.Warn("careful")
	logger.Error("broken")

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug should be filtered")
	}
	if !strings.Contains(out.String(), "hello") || !strings.Contains(out.String(), "careful") {
		t.Errorf("stdout missing info/warn: %q", out.String())
	}
	if strings.Contains(out.String(), "broken") || !strings.Contains(errOut.String(), "broken") {
		t.Error("errors should go to stderr only")
	}
	if !strings.Contains(errOut.String(), "component=test") {
		t.Error("attributes should carry over")
	}
}
