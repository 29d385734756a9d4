package server

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin creates the initial admin account when no admins exist.
// Idempotent: does nothing once any admin is present.
func SeedAdmin(ctx context.Context, logger *slog.Logger, store Store, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	n, err := store.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}
	if err := store.CreateAdmin(ctx, email, string(hash), roleAdmin); err != nil {
		return fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Info("seed admin created", "email", email)
	return nil
}
