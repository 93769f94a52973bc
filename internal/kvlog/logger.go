// Package kvlog provides the structured, leveled logging used across
// corekv. It implements github.com/lni/dragonboat/v4/logger.ILogger with
// a small custom formatter, giving every package its own named,
// independently-leveled logger without pulling in a full logging
// framework.
package kvlog

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// shardNames lists every package that logs through kvlog. SetLevel
// applies a single configured level to all of them.
var shardNames = []string{"router", "diskshard", "cacheshard", "tiered", "http", "cmd"}

// corekvLogger implements logger.ILogger with "LEVEL | pkg | msg" lines.
type corekvLogger struct {
	name  string
	level logger.LogLevel
	std   *log.Logger
}

func (l *corekvLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *corekvLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.write("DEBUG", format, args...)
	}
}

func (l *corekvLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.write("INFO", format, args...)
	}
}

func (l *corekvLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.write("WARN", format, args...)
	}
}

func (l *corekvLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.write("ERROR", format, args...)
	}
}

func (l *corekvLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

func (l *corekvLogger) write(level, format string, args ...interface{}) {
	l.std.Printf("%-5s | %-10s | %s", level, l.name, fmt.Sprintf(format, args...))
}

// factory creates a new named logger. Registered once via
// logger.SetLoggerFactory in init so every logger.GetLogger call across
// the module returns a corekvLogger.
func factory(name string) logger.ILogger {
	return &corekvLogger{
		name:  name,
		level: logger.INFO,
		std:   log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
}

func init() {
	logger.SetLoggerFactory(factory)
}

// Get returns the named logger, creating it on first use.
func Get(name string) logger.ILogger {
	return logger.GetLogger(name)
}

// ParseLevel converts a level name (debug, info, warn, error) to a
// logger.LogLevel, defaulting to INFO for unrecognized input.
func ParseLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warn", "warning":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// SetLevel applies level to every corekv package logger.
func SetLevel(level string) {
	lvl := ParseLevel(level)
	for _, name := range shardNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
}
