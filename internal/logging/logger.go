// Package logging provides categorized structured logging for concierge.
// Each subsystem logs under its own category so a single noisy component
// can be silenced without losing the rest. Backed by zap; when debug mode
// is off only warnings and errors are emitted.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryEngine   Category = "engine"   // orchestration loop
	CategoryRegistry Category = "registry" // capability registration and invocation
	CategoryRemote   Category = "remote"   // remote catalog discovery and calls
	CategoryParser   Category = "parser"   // completion parsing
	CategoryContext  Category = "context"  // prompt context assembly
	CategoryLLM      Category = "llm"      // model endpoint calls
	CategoryConfig   Category = "config"   // config loading and hot reload
)

// Options controls logger construction.
type Options struct {
	// Debug enables debug-level output. When false, only Warn and above
	// are emitted.
	Debug bool

	// Dir, when set, writes logs to Dir/concierge.log instead of stderr.
	Dir string

	// Categories gates individual categories; empty means all enabled.
	Categories map[string]bool
}

var (
	mu      sync.RWMutex
	root    *zap.SugaredLogger
	loggers = make(map[Category]*zap.SugaredLogger)
	opts    Options
	nop     = zap.NewNop().Sugar()
)

// Initialize builds the root logger. Safe to call more than once; the
// last call wins. Must be called before Get for output to appear.
func Initialize(o Options) error {
	level := zapcore.WarnLevel
	if o.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if o.Dir != "" {
		if err := os.MkdirAll(o.Dir, 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(o.Dir, "concierge.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		sink = zapcore.Lock(f)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, level)

	mu.Lock()
	defer mu.Unlock()
	root = zap.New(core).Sugar()
	opts = o
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the logger for a category. Before Initialize, or for a
// disabled category, it returns a no-op logger.
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
	if root == nil || !categoryEnabled(cat) {
		loggers[cat] = nop
		return nop
	}
	l := root.Named(string(cat))
	loggers[cat] = l
	return l
}

func categoryEnabled(cat Category) bool {
	if len(opts.Categories) == 0 {
		return true
	}
	enabled, ok := opts.Categories[string(cat)]
	return !ok || enabled
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}
