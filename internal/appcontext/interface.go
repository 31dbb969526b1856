// Package appcontext provides the shared application context interface
// used by all commands. Commands depend on this interface rather than the
// concrete App so they can be tested with Mock.
package appcontext

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/reposcout/internal/inspect"
	"github.com/agentstation/reposcout/internal/reconcile"
)

// RecordStore is everything commands need from the record store adapter.
type RecordStore interface {
	reconcile.Store
	inspect.Describer
	ListOriginKeys(ctx context.Context, viewID string) ([]string, error)
}

// Interface defines the application context interface that commands need.
type Interface interface {
	// RecordStore returns the record store, optionally restricted to one origin key.
	// A missing token is reported as a configuration error.
	RecordStore(originKey string) (RecordStore, error)

	// SearchProvider returns the code search adapter.
	SearchProvider() (reconcile.Searcher, error)

	// ViewID returns the configured view.
	ViewID() string

	// Pacing returns the configured interval between records.
	Pacing() time.Duration

	// ValidateCredentials fails with a configuration error when a required token is missing.
	ValidateCredentials() error

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
