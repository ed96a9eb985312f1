package gitdict

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var verboseMode atomic.Bool

// SetVerbose sets the global verbose mode
func SetVerbose(verbose bool) {
	verboseMode.Store(verbose)
}

// VerboseLog logs at debug level, only when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	if verboseMode.Load() {
		slog.Debug(fmt.Sprintf(format, v...))
	}
}

// InitLogging installs the default slog logger. format "json" selects the JSON
// handler, anything else the text handler. Verbose lowers the level to debug.
func InitLogging(w io.Writer, verbose bool, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	SetVerbose(verbose)

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
