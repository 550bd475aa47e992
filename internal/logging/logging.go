// Package logging holds the slog plumbing shared by the compositor packages.
//
// Library packages never log unless a caller hands them a logger; the zero
// value everywhere is a logger whose handler is disabled, so formatting is
// skipped entirely.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

// nopHandler is a slog.Handler that discards every record.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that silently discards all output.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// New builds the stderr text logger used by the server binary. Stdout is
// reserved for the MCP protocol. level "debug" enables debug output.
func New(level string) *slog.Logger {
	lvl := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// Warn logs w at warn level with its kind as an attribute.
func Warn(l *slog.Logger, w warn.Warning, attrs ...any) {
	l.Warn(w.Message, append([]any{slog.String("kind", w.Kind.String())}, attrs...)...)
}
