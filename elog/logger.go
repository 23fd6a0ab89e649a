// Package elog provides the engine's structured logging on top of slog,
// with a glog-style handler for verbosity/vmodule control. Every engine
// package logs through a component-scoped Logger obtained from New, never
// through the bare "log" stdlib package or fmt.Println.
package elog

import (
	"context"
	"io"
	"log/slog"
	"os"

	luxlog "github.com/luxfi/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects where and how log records are written.
type Config struct {
	// Level is the minimum slog.Level a record must have to be emitted.
	Level slog.Level
	// Vmodule is a glog-style per-pattern verbosity list, e.g. "ltt=2,stream=-4".
	// It is validated and stored by the handler but does not change filtering;
	// only Level does.
	Vmodule string
	// RotatePath, when non-empty, routes output through a lumberjack rotating
	// file sink instead of the terminal.
	RotatePath string
	// JSON selects structured JSON records instead of the human terminal format.
	JSON bool
}

// slogAdapter satisfies luxlog.Logger on top of a plain *slog.Logger, to
// bridge slog into the luxfi/log interface.
type slogAdapter struct {
	l *slog.Logger
}

var _ luxlog.Logger = (*slogAdapter)(nil)

func wrap(l *slog.Logger) luxlog.Logger { return &slogAdapter{l: l} }

func (a *slogAdapter) With(ctx ...interface{}) luxlog.Logger { return wrap(a.l.With(ctx...)) }
func (a *slogAdapter) New(ctx ...interface{}) luxlog.Logger  { return a.With(ctx...) }

func (a *slogAdapter) Log(level slog.Level, msg string, ctx ...interface{}) {
	a.l.Log(context.Background(), level, msg, ctx...)
}

func (a *slogAdapter) Trace(msg string, ctx ...interface{}) { a.Log(LevelTrace, msg, ctx...) }
func (a *slogAdapter) Debug(msg string, ctx ...interface{}) { a.l.Debug(msg, ctx...) }
func (a *slogAdapter) Info(msg string, ctx ...interface{})  { a.l.Info(msg, ctx...) }
func (a *slogAdapter) Warn(msg string, ctx ...interface{})  { a.l.Warn(msg, ctx...) }
func (a *slogAdapter) Error(msg string, ctx ...interface{}) { a.l.Error(msg, ctx...) }
func (a *slogAdapter) Crit(msg string, ctx ...interface{})  { a.Log(LevelCrit, msg, ctx...) }

// Level constants, including the glog-style trace/crit aliases slog itself
// doesn't define.
const (
	LevelTrace slog.Level = -8
	LevelDebug            = slog.LevelDebug
	LevelInfo             = slog.LevelInfo
	LevelWarn             = slog.LevelWarn
	LevelError            = slog.LevelError
	LevelCrit  slog.Level = 12
)

var root luxlog.Logger = wrap(slog.New(slog.NewTextHandler(os.Stderr, nil)))

// Configure rebuilds the process-wide root logger from cfg and installs it
// both as elog's own root and as the luxfi/log default, so every call site
// across the dependency graph shares one sink.
func Configure(cfg Config) error {
	var base slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.Level}

	if cfg.RotatePath != "" {
		sink := &lumberjack.Logger{
			Filename:   cfg.RotatePath,
			MaxSize:    100, // megabytes
			MaxBackups: 10,
			MaxAge:     28, // days
			Compress:   true,
		}
		if cfg.JSON {
			base = slog.NewJSONHandler(sink, opts)
		} else {
			base = slog.NewTextHandler(sink, opts)
		}
	} else {
		w := os.Stderr
		var out io.Writer = w
		if isatty.IsTerminal(w.Fd()) {
			out = colorable.NewColorable(w)
		}
		if cfg.JSON {
			base = slog.NewJSONHandler(out, opts)
		} else {
			base = slog.NewTextHandler(out, opts)
		}
	}

	glog := NewGlogHandler(base)
	glog.Verbosity(cfg.Level)
	if cfg.Vmodule != "" {
		if err := glog.Vmodule(cfg.Vmodule); err != nil {
			return err
		}
	}

	root = wrap(slog.New(glog))
	luxlog.SetDefault(root)
	return nil
}

// New returns a logger scoped to the named component (e.g. "ltt", "undo",
// "stream"), tagging every record with the subsystem that emitted it.
func New(component string) luxlog.Logger {
	return root.With("component", component)
}

// Root returns the process-wide default logger.
func Root() luxlog.Logger { return root }
