// Package logging configures the process-wide logrus logger: level,
// formatter, and output to stderr plus a persistent run log file.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options controls logger setup.
type Options struct {
	Level  string // trace|debug|info|warn|error; default info
	Format string // text|json; default text
	File   string // run log file; empty disables file output
}

// Init applies the options to the standard logrus logger. A bad level or
// unopenable log file degrades gracefully; setup never fails the run.
func Init(opts Options) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		if opts.Level != "" {
			logrus.Warnf("invalid log level %q, using info", opts.Level)
		}
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := io.Writer(os.Stderr)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logrus.Warnf("cannot open log file %q, logging to stderr only: %v", opts.File, err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}
	logrus.SetOutput(out)
}
