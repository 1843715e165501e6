package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup points the standard logger at stderr and, when File is set, a rotating
// log file. The returned closer flushes the file sink.
func Setup(opts Options) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}
	if dir := filepath.Dir(opts.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.SetOutput(os.Stderr)
			log.Printf("logging: create %s: %v", dir, err)
			return nopCloser{}
		}
	}
	sink := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, sink))
	return sink
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
