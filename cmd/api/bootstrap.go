package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tasklist/tasklist-go/internal/config"
	"github.com/tasklist/tasklist-go/internal/service"
)

// bootstrapAdmin makes sure the configured administrator exists. A generated
// password goes to cfg.AdminPasswordFile; only the path is logged.
func bootstrapAdmin(ctx context.Context, auth *service.AuthService, cfg config.Config, logger *slog.Logger) error {
	result, err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if !result.Created {
		return nil
	}
	if result.GeneratedPassword == "" {
		logger.Info("bootstrap admin created with ADMIN_PASSWORD")
		return nil
	}

	if err := writeSecretFile(cfg.AdminPasswordFile, result.GeneratedPassword); err != nil {
		return fmt.Errorf("saving bootstrap admin password: %w", err)
	}
	path, err := filepath.Abs(cfg.AdminPasswordFile)
	if err != nil {
		path = cfg.AdminPasswordFile
	}
	logger.Warn("bootstrap admin created, read the password from the file, change it and delete the file",
		"password_file", path)
	return nil
}

// writeSecretFile writes secret to path readable only by the owner,
// replacing any previous content.
func writeSecretFile(path, secret string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	// OpenFile keeps the mode of an existing file.
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return err
	}
	if _, err := f.WriteString(secret + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
