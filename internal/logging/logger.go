// Package logging provides colored, leveled log output for the planner
// service and CLI.
//
// Every line carries a color-coded [LEVEL] prefix. Debug output is
// suppressed unless the logger is verbose.
package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

var (
	infoPrefix    = color.New(color.FgBlue).SprintFunc()
	successPrefix = color.New(color.FgGreen).SprintFunc()
	warnPrefix    = color.New(color.FgYellow).SprintFunc()
	errorPrefix   = color.New(color.FgRed).SprintFunc()
	debugPrefix   = color.New(color.FgCyan).SprintFunc()
)

// Logger writes Info, Success and Debug lines to out and Warn and Error
// lines to err. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	err     io.Writer
	verbose bool
}

func New(out, err io.Writer, verbose bool) *Logger {
	return &Logger{out: out, err: err, verbose: verbose}
}

// Discard drops everything.
func Discard() *Logger {
	return New(io.Discard, io.Discard, false)
}

func (l *Logger) SetVerbose(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = v
}

func (l *Logger) Verbose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbose
}

func (l *Logger) Info(msg string)    { l.write(l.out, infoPrefix("[INFO]"), msg) }
func (l *Logger) Success(msg string) { l.write(l.out, successPrefix("[SUCCESS]"), msg) }
func (l *Logger) Warn(msg string)    { l.write(l.err, warnPrefix("[WARN]"), msg) }
func (l *Logger) Error(msg string)   { l.write(l.err, errorPrefix("[ERROR]"), msg) }

func (l *Logger) Debug(msg string) {
	if !l.Verbose() {
		return
	}
	l.write(l.out, debugPrefix("[DEBUG]"), msg)
}

func (l *Logger) Infof(format string, args ...any)    { l.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Successf(format string, args ...any) { l.Success(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)    { l.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any)   { l.Error(fmt.Sprintf(format, args...)) }

func (l *Logger) Debugf(format string, args ...any) {
	if !l.Verbose() {
		return
	}
	l.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) write(w io.Writer, prefix, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(w, prefix+" "+msg)
}

// FormatDuration converts a duration in seconds to a human-readable string.
//
// Examples:
//
//	FormatDuration(0)    => "0s"
//	FormatDuration(90)   => "1m 30s"
//	FormatDuration(3661) => "1h 1m 1s"
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}
