package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/urfave/cli/v2"
)

// consoleLogger writes leveled lines to stderr, debug only when verbose
type consoleLogger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

func newLogger(c *cli.Context) *consoleLogger {
	return &consoleLogger{out: os.Stderr, verbose: c.Bool("verbose")}
}

func (l *consoleLogger) Debug(format string, args ...any) {
	if l.verbose {
		l.write("DBG", format, args...)
	}
}

func (l *consoleLogger) Info(format string, args ...any) {
	l.write("INF", format, args...)
}

func (l *consoleLogger) Warn(format string, args ...any) {
	l.write("WRN", format, args...)
}

func (l *consoleLogger) Error(format string, args ...any) {
	l.write("ERR", format, args...)
}

func (l *consoleLogger) write(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] WODSTRAT %s\n", level, fmt.Sprintf(format, args...))
}
