// Package app provides the application context and dependency management
// for the reposcout CLI. It centralizes configuration, logging and the
// construction of the Airtable and GitHub adapters.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/reposcout/internal/appcontext"
	"github.com/agentstation/reposcout/internal/cmd/globals"
	"github.com/agentstation/reposcout/internal/reconcile"
	"github.com/agentstation/reposcout/internal/sources/airtable"
	"github.com/agentstation/reposcout/internal/sources/github"
	"github.com/agentstation/reposcout/internal/transport"
)

// App represents the reposcout application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	flags  *globals.Flags
	logger *zerolog.Logger

	// shared HTTP transport, created on first use
	mu        sync.Mutex
	transport *transport.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		flags:   &globals.Flags{},
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// ViewID returns the configured view.
func (a *App) ViewID() string {
	return a.config.AirtableViewID
}

// Pacing returns the configured interval between records.
func (a *App) Pacing() time.Duration {
	return a.config.Pacing
}

// ValidateCredentials requires both tokens.
func (a *App) ValidateCredentials() error {
	return a.config.Validate()
}

// RecordStore builds the Airtable adapter.
func (a *App) RecordStore(originKey string) (appcontext.RecordStore, error) {
	if err := a.config.ValidateAirtable(); err != nil {
		return nil, err
	}
	client, err := airtable.New(a.config.AirtableConfig(originKey),
		airtable.WithTransport(a.httpTransport()),
		airtable.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// SearchProvider builds the GitHub adapter.
func (a *App) SearchProvider() (reconcile.Searcher, error) {
	if err := a.config.ValidateGitHub(); err != nil {
		return nil, err
	}
	client, err := github.New(a.config.GitHubConfig(),
		github.WithTransport(a.httpTransport()),
		github.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a *App) httpTransport() *transport.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.transport == nil {
		a.transport = transport.New(
			transport.WithHTTPClient(a.config.HTTPClient()),
			transport.WithRetryPolicy(a.config.RetryPolicy()),
			transport.WithLogger(a.logger),
		)
	}
	return a.transport
}

// resetTransport drops the shared transport after the configuration changed.
func (a *App) resetTransport() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transport = nil
}

// Shutdown releases idle connections. It is safe to call more than once.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.transport != nil {
		a.transport.CloseIdleConnections()
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)
