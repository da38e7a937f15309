// Package logging provides galdi's small stderr logger: a Logger that is
// safe to call methods on even when nil (so callers never need a
// "if logger != nil" guard), supports named subloggers, and colorizes
// warnings/errors when writing to a terminal.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Logger is the main logger type. A nil *Logger is valid and simply discards
// everything, so RootLogger.Sublogger("scan") etc. is always safe even if
// logging has been disabled entirely by the caller.
type Logger struct {
	prefix string
	out    io.Writer
	color  bool
}

// RootLogger is the root logger from which all other loggers derive. It
// writes to os.Stderr and colorizes output only when stderr is a terminal.
var RootLogger = &Logger{
	out:   os.Stderr,
	color: isatty.IsTerminal(os.Stderr.Fd()),
}

// Sublogger creates a new sublogger with the specified name appended to this
// logger's prefix, dot-separated.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix, out: l.out, color: l.color}
}

func (l *Logger) line(format string, v ...interface{}) string {
	line := fmt.Sprintf(format, v...)
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	return line
}

// Println logs a plain informational line.
func (l *Logger) Println(v ...interface{}) {
	if l == nil {
		return
	}
	log.New(l.out, "", log.LstdFlags).Println(l.line("%s", fmt.Sprint(v...)))
}

// Warn logs a warning, colorized yellow on a terminal. Warnings correspond to
// the non-fatal per-entry conditions recorded in a scan's Warnings list:
// unreadable files, unenterable directories, rejected non-UTF-8 paths.
func (l *Logger) Warn(err error) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf("Warning: %v", err)
	if l.color {
		msg = color.YellowString(msg)
	}
	log.New(l.out, "", log.LstdFlags).Println(l.line("%s", msg))
}

// Error logs a fatal-path error, colorized red on a terminal.
func (l *Logger) Error(err error) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf("Error: %v", err)
	if l.color {
		msg = color.RedString(msg)
	}
	log.New(l.out, "", log.LstdFlags).Println(l.line("%s", msg))
}
