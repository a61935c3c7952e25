// Package logging configures the global zerolog logger. Health data is
// sensitive: callers log timestamps, counts, and durations, never raw
// heart-rate values. stdout stays clean for the MCP stdio transport.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init wires the global logger: human-readable console output on stderr plus
// a rotating JSON file under the log directory.
func Init(verbose bool) {
	// Init runs before config.Load, so pull in a binary-relative .env here
	// to make LOGS_FOLDER visible.
	exeDir := ""
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		_ = godotenv.Load(filepath.Join(exeDir, ".env"))
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal(os.Stderr.Fd()),
	}

	logDir := resolveLogDir(exeDir)
	if err := ensureWritable(logDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Rotated files hold timestamps and counts only; retention is still
	// capped at 90 days.
	file := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "hrtriage.log"),
		MaxSize:    16, // megabytes
		MaxBackups: 8,
		MaxAge:     90, // days
		Compress:   true,
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, file)).
		With().
		Timestamp().
		Logger()
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// resolveLogDir mirrors config.Load's LOGS_FOLDER handling; logging comes up
// first and cannot ask the config package.
func resolveLogDir(exeDir string) string {
	if dir := os.Getenv("LOGS_FOLDER"); dir != "" {
		return dir
	}
	if exeDir != "" {
		return filepath.Join(exeDir, "logs")
	}
	return "logs"
}

// ensureWritable fails fast on an unusable log directory; lumberjack would
// otherwise swallow the error and log nothing.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating log directory %q: %v", dir, err)
	}
	probe := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return fmt.Errorf("log directory %q is not writable: %v", dir, err)
	}
	return os.Remove(probe)
}
