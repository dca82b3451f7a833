// Package telemetry provides the engine's structured logging: a
// package-level, mutex-guarded sink that can be silenced entirely,
// generalized from a hand-rolled debug writer to log/slog so log lines
// carry structured fields. No third-party structured-logging library
// appears anywhere in the retrieved example pack's go.mod files, so this
// is the one ambient concern built on the standard library; see DESIGN.md.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	logger  = slog.New(slog.NewTextHandler(os.Stderr, nil))
	mcpMode bool
)

// SetMCPMode silences stderr logging while the process speaks MCP over
// stdio: any stray write to stdout/stderr corrupts the JSON-RPC stream the
// transport relies on.
func SetMCPMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	mcpMode = enabled
	if enabled {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
}

// SetOutput redirects logging to an arbitrary writer (tests, log files).
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	if mcpMode {
		return
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// L returns the current logger. Safe for concurrent use. SetOutput and
// SetMCPMode install a new logger, so a logger retrieved earlier keeps its
// old destination; callers call L() close to use.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// WithOp returns a child logger annotated with the current operation name,
// for the component/operation pairs that appear throughout the engine's
// diagnostics (parser, compactor, retrieval, orchestrator step records).
func WithOp(ctx context.Context, component, op string) *slog.Logger {
	return L().With("component", component, "op", op)
}
