package alog

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test returns a TestLogger logging every level, including LevelTrace.
func Test(t *testing.T) *TestLogger {
	if t == nil {
		panic("alog: Test called with nil *testing.T")
	}

	rec := &recorder{}

	return &TestLogger{
		Logger: slog.New(newGeoHandler(
			WithLevel(LevelTrace),
			WithHandler(slog.NewTextHandler(rec, getDebugHandlerOptions())),
		)),
		t:   t,
		rec: rec,
	}
}

// TestLogger can be injected wherever a logger is expected.
// Its assertions run against the text lines logged so far and,
// like testify, return whether they passed.
type TestLogger struct {
	*slog.Logger

	t   *testing.T
	rec *recorder
}

var (
	_ Logger          = (*TestLogger)(nil)
	_ LevelController = (*TestLogger)(nil)
)

func (l *TestLogger) SetLevel(level slog.Level) { Unwrap(l.Logger).SetLevel(level) }
func (l *TestLogger) Level() slog.Level         { return Unwrap(l.Logger).Level() }
func (l *TestLogger) UsesSettings() bool        { return Unwrap(l.Logger).UsesSettings() }

// Lines returns each logged record as one text line.
func (l *TestLogger) Lines() []string {
	return l.rec.snapshot()
}

func (l *TestLogger) String() string {
	return strings.Join(l.Lines(), "")
}

// Empty asserts nothing was logged.
func (l *TestLogger) Empty(msgAndArgs ...any) bool {
	l.t.Helper()

	if n := len(l.Lines()); n != 0 {
		return assert.Fail(l.t, fmt.Sprintf("logger is not empty, it has %s", plural(n)), msgAndArgs...)
	}

	return true
}

func (l *TestLogger) NotEmpty(msgAndArgs ...any) bool {
	l.t.Helper()

	if len(l.Lines()) == 0 {
		return assert.Fail(l.t, "logger is empty, should not be", msgAndArgs...)
	}

	return true
}

// Contains asserts that at least one line contains s.
func (l *TestLogger) Contains(s string, msgAndArgs ...any) bool {
	l.t.Helper()

	if slices.ContainsFunc(l.Lines(), func(line string) bool { return strings.Contains(line, s) }) {
		return true
	}

	return assert.Fail(l.t, "log output does not have a line which contains: "+s, msgAndArgs...)
}

// NotContains asserts that no line contains s.
func (l *TestLogger) NotContains(s string, msgAndArgs ...any) bool {
	l.t.Helper()

	if slices.ContainsFunc(l.Lines(), func(line string) bool { return strings.Contains(line, s) }) {
		return assert.Fail(l.t, "log output contains: "+s+", should not", msgAndArgs...)
	}

	return true
}

// Total asserts exactly n lines were logged.
func (l *TestLogger) Total(n int, msgAndArgs ...any) bool {
	l.t.Helper()

	if got := len(l.Lines()); got != n {
		return assert.Fail(l.t, fmt.Sprintf("logger should have %s, it has %d", plural(n), got), msgAndArgs...)
	}

	return true
}

func plural(n int) string {
	if n == 1 {
		return "1 line"
	}

	return fmt.Sprintf("%d lines", n)
}

// recorder keeps every Write as one line, slog handlers write each record in one call.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, string(p))

	return len(p), nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.lines)
}
