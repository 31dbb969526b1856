package appcontext

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/reposcout/internal/reconcile"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding field.
// If a field is nil or empty, the method returns a default/zero value.
type Mock struct {
	RecordStoreFunc    func(originKey string) (RecordStore, error)
	SearchProviderFunc func() (reconcile.Searcher, error)
	ValidateFunc       func() error
	LoggerFunc         func() *zerolog.Logger

	View     string
	Format   string
	Interval time.Duration

	VersionString string
}

var _ Interface = (*Mock)(nil)

// RecordStore returns a store using the mock function or nil.
func (m *Mock) RecordStore(originKey string) (RecordStore, error) {
	if m.RecordStoreFunc != nil {
		return m.RecordStoreFunc(originKey)
	}
	return nil, nil
}

// SearchProvider returns a searcher using the mock function or nil.
func (m *Mock) SearchProvider() (reconcile.Searcher, error) {
	if m.SearchProviderFunc != nil {
		return m.SearchProviderFunc()
	}
	return nil, nil
}

// ViewID returns View.
func (m *Mock) ViewID() string {
	return m.View
}

// Pacing returns Interval.
func (m *Mock) Pacing() time.Duration {
	return m.Interval
}

// ValidateCredentials uses the mock function or succeeds.
func (m *Mock) ValidateCredentials() error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc()
	}
	return nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// Version returns VersionString or "dev".
func (m *Mock) Version() string {
	if m.VersionString != "" {
		return m.VersionString
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string {
	return "unknown"
}

// Date returns "unknown".
func (m *Mock) Date() string {
	return "unknown"
}

// BuiltBy returns "unknown".
func (m *Mock) BuiltBy() string {
	return "unknown"
}
