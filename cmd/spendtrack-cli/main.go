package main

import (
	"context"
	"errors"
	"os"

	"spendtrack/internal/auth"
	"spendtrack/internal/backend"
	"spendtrack/internal/cli"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/report"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", backendCfg.Type.String())
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	}()

	if err := ensureDefaultAccount(ctx, result.Backend); err != nil {
		logger.Error("Failed to prepare local account", log.FieldError, err)
		os.Exit(1)
	}

	engine := report.New(result.Backend)
	menu := cli.NewMenu(engine, result.Service, cli.DefaultOwnerID, os.Stdin, os.Stdout, logger)
	if err := menu.Run(ctx); err != nil {
		logger.Error("CLI error", log.FieldError, err)
		os.Exit(1)
	}
}

// ensureDefaultAccount creates the implicit local user on first run. The
// password is random and never shown, so the account cannot log in to the
// web frontend.
func ensureDefaultAccount(ctx context.Context, b backend.Backend) error {
	_, err := b.GetUserByID(ctx, cli.DefaultOwnerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return err
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(token)
	if err != nil {
		return err
	}
	_, err = b.CreateUser(ctx, "local", hash)
	return err
}
