package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jakechorley/issuer-allocation/internal/config"
	"github.com/jakechorley/issuer-allocation/pkg/clients/sheetsclient"
)

// SkipConfigAnnotation marks commands that run without loading the config file
const SkipConfigAnnotation = "skipConfig"

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env    string
	Cfg    *config.Config
	Logger *zap.Logger
	Ctx    context.Context
	In     io.Reader
	Out    io.Writer

	sheetsClient *sheetsclient.Client
}

// SheetsClient returns the Google Sheets client, running the OAuth flow on first use.
// Runs that only touch local files never need credentials.
func (app *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	if app.sheetsClient != nil {
		return app.sheetsClient, nil
	}

	app.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	app.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(app.Ctx, oauthCfg, app.Env, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	app.Logger.Debug("Sheets client initialized successfully")

	app.sheetsClient = client
	return client, nil
}

func (app *AppContext) out() io.Writer {
	if app.Out == nil {
		return os.Stdout
	}
	return app.Out
}

func (app *AppContext) in() io.Reader {
	if app.In == nil {
		return os.Stdin
	}
	return app.In
}
