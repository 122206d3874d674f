package ferrule

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// TLogger is a basic dependency for testing.
type TLogger struct {
	Prefix string
	Lines  []string
}

func NewTLogger() *TLogger {
	return &TLogger{Prefix: "test"}
}

func (l *TLogger) Log(line string) { l.Lines = append(l.Lines, line) }

// TDatabase demonstrates constructor injection with a literal parameter.
type TDatabase struct {
	DSN    string
	Logger *TLogger
}

func NewTDatabase(dsn string, logger *TLogger) *TDatabase {
	return &TDatabase{DSN: dsn, Logger: logger}
}

// TMailer demonstrates tag-driven property and setter injection.
type TMailer struct {
	Logger *TLogger `inject:""`
	From   string

	transport string
}

func (m *TMailer) SetTransport(transport string) { m.transport = transport }

// TNotifier is an interface with a single registered implementation.
type TNotifier interface {
	Notify(msg string) error
}

func (m *TMailer) Notify(msg string) error {
	if m.Logger != nil {
		m.Logger.Log(msg)
	}
	return nil
}

// TCounter tracks construction counts for scope tests.
type TCounter struct {
	N int64
}

var tCounterBuilds atomic.Int64

func NewTCounter() *TCounter {
	return &TCounter{N: tCounterBuilds.Add(1)}
}

// NewFailing always fails, for error path tests.
func NewFailing() (*TDatabase, error) {
	return nil, fmt.Errorf("boom")
}

// ============================================================================
// Shared Helpers
// ============================================================================

// newTestBuilder registers the shared test types on a fresh builder.
func newTestBuilder(t *testing.T) *Builder {
	t.Helper()

	b := NewBuilder()
	b.Register("logger", NewTLogger)
	b.Register("database", NewTDatabase, WithParamNames("dsn", "logger"))
	b.RegisterStruct("mailer", TMailer{})
	b.Register("counter", NewTCounter)
	return b
}

// mustBuild builds the container, failing the test on configuration errors.
func mustBuild(t *testing.T, b *Builder) Container {
	t.Helper()

	c, err := b.Build()
	require.NoError(t, err)
	return c
}
