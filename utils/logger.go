package utils

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Logger provides leveled logging. It is constructed once in main and passed
// into every component, so nothing in the pipeline logs through a global.
type Logger struct {
	info    *log.Logger
	warn    *log.Logger
	err     *log.Logger
	debug   *log.Logger
	verbose bool
}

// NewLogger creates a Logger writing to stdout/stderr. Debug output is
// emitted only when the DEBUG environment variable is set.
func NewLogger() *Logger {
	return &Logger{
		info:    log.New(os.Stdout, "", 0),
		warn:    log.New(os.Stdout, "", 0),
		err:     log.New(os.Stderr, "", 0),
		debug:   log.New(os.Stdout, "", 0),
		verbose: os.Getenv("DEBUG") != "",
	}
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] \033[32mINFO\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] \033[33mWARN\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] \033[31mERROR\033[0m %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] \033[36mDEBUG\033[0m %s\n", l.timestamp(), format), args...)
}
