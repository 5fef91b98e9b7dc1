// Package logging provides category-keyed structured logging for the
// engine, built on zap. Until Initialize runs, every category resolves to
// a no-op logger, which keeps library code and tests silent.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem's log stream.
type Category string

const (
	CategoryBoot      Category = "boot"      // startup and wiring
	CategoryProtocol  Category = "protocol"  // tn5250 negotiation and records
	CategorySession   Category = "session"   // server-side session lifecycle
	CategoryServer    Category = "server"    // listener and accept loop
	CategoryWorkflow  Category = "workflow"  // orchestrator step driving
	CategoryComponent Category = "component" // component execution
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = map[Category]*zap.SugaredLogger{}
)

// Options configures the process logger.
type Options struct {
	// Debug lowers the level to debug.
	Debug bool
	// Dir, when set, sends logs to <Dir>/greenscreen.log instead of stderr.
	Dir string
}

// Initialize builds the shared zap logger. Safe to call once at startup;
// later Get calls inherit the configuration.
func Initialize(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, "greenscreen.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		sink = zapcore.Lock(f)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)

	mu.Lock()
	defer mu.Unlock()
	root = zap.New(core)
	loggers = map[Category]*zap.SugaredLogger{}
	return nil
}

// SetLogger replaces the root logger outright; tests use this to capture
// output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	loggers = map[Category]*zap.SugaredLogger{}
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := root.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries; call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Scrub replaces each secret with asterisks in msg. Callers that handle
// credentials run every outbound message through this.
func Scrub(msg string, secrets []string) string {
	for _, s := range secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, "******")
		}
	}
	return msg
}
