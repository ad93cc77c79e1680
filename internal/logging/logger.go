// Package logging provides categorized file-based logging for weaklog.
// Logs are written to a single rotated file under the configured log
// directory; each subsystem gets a named child logger. Before Initialize
// is called (and always in tests), every category resolves to a no-op
// logger so library code never touches the filesystem on its own.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryProvider  Category = "provider"  // LLM API calls, retries, classification
	CategoryStore     Category = "store"     // Entry store operations
	CategoryScheduler Category = "scheduler" // Cooldown index operations
	CategoryTriage    Category = "triage"    // Triage evaluation
	CategorySynthesis Category = "synthesis" // Synthesis guide generation
	CategoryWorkflow  Category = "workflow"  // Orchestrator commands
	CategoryCLI       Category = "cli"       // Command-line surface
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	sinkRef *lumberjack.Logger
)

// Options controls log output.
type Options struct {
	Dir        string // directory for the log file
	Debug      bool   // enable debug level
	MaxSizeMB  int    // rotation threshold, default 10
	MaxBackups int    // rotated files kept, default 3
	Console    bool   // mirror warnings and errors to stderr
}

// Initialize sets up the shared rotated log sink. Safe to call once at
// startup; calling again replaces the sink.
func Initialize(opts Options) error {
	if opts.Dir == "" {
		return fmt.Errorf("logging: log directory required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("logging: create log directory: %w", err)
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 3
	}

	sink := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "weaklog.log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}

	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), level),
	}
	if opts.Console {
		consoleEnc := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEnc),
			zapcore.AddSync(os.Stderr),
			zapcore.WarnLevel,
		))
	}

	mu.Lock()
	defer mu.Unlock()
	root = zap.New(zapcore.NewTee(cores...))
	sinkRef = sink
	return nil
}

// Get returns the named logger for a category. Returns a no-op logger
// when logging has not been initialized.
func Get(cat Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return zap.NewNop()
	}
	return root.Named(string(cat))
}

// Sync flushes buffered log entries. Called on process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}

// Close flushes and closes the underlying sink.
func Close() error {
	Sync()
	mu.Lock()
	defer mu.Unlock()
	if sinkRef != nil {
		err := sinkRef.Close()
		sinkRef = nil
		root = nil
		return err
	}
	root = nil
	return nil
}
