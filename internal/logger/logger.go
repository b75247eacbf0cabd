package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
	level LogLevel
)

func init() {
	// Usable before Init is called (tests, early CLI errors)
	InitWriter(os.Stderr, LevelWarn)
}

// Options controls the rotating log file.
type Options struct {
	Path       string // directory holding file_cleanup.log
	Level      LogLevel
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Stderr     bool // also copy output to stderr
}

func ParseLogLevel(lvl string) LogLevel {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	case "WARN":
		return LevelWarn
	default:
		return LevelInfo
	}
}

type nullWriter struct{}

func (nw *nullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// Init opens the rotating log file and configures the level loggers.
func Init(opts Options) error {
	if err := os.MkdirAll(opts.Path, 0755); err != nil {
		return err
	}

	var out io.Writer = &lumberjack.Logger{
		Filename:   filepath.Join(opts.Path, "file_cleanup.log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	if opts.Stderr {
		out = io.MultiWriter(out, os.Stderr)
	}

	InitWriter(out, opts.Level)
	return nil
}

// InitWriter points all level loggers at w.
func InitWriter(w io.Writer, logLevel LogLevel) {
	level = logLevel

	// Always enable Error logging
	Error = log.New(w, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	Warn = log.New(writerFor(w, LevelWarn), "WARN: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(writerFor(w, LevelInfo), "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	Debug = log.New(writerFor(w, LevelDebug), "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
}

func writerFor(w io.Writer, min LogLevel) io.Writer {
	if level >= min {
		return w
	}
	return &nullWriter{}
}

// Enabled reports whether messages at lvl are written.
func Enabled(lvl LogLevel) bool {
	return level >= lvl
}

func LogFileSkipped(operation, file string, err error) {
	Warn.Printf("%s skipped %s: %v", operation, file, err)
}
