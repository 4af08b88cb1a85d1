// Package logging configures the process logger. Every component receives a
// *logrus.Entry derived from the logger returned here.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Profile selects logger defaults.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Options adjusts a profile.
type Options struct {
	Verbose bool
	Output  io.Writer
}

// New returns a logger for the profile. Output defaults to stderr; a
// terminal gets text output, anything else (batch log files) gets JSON.
func New(profile Profile, options Options) *logrus.Logger {
	logger := logrus.New()
	out := options.Output
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)
	switch profile {
	case ProfileTest:
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	default:
		logger.SetLevel(logrus.InfoLevel)
		if isTerminal(out) {
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		} else {
			logger.SetFormatter(&logrus.JSONFormatter{})
		}
	}
	if options.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// ForNode returns an entry tagged with the node-process identity.
func ForNode(logger *logrus.Logger, jobID string, rank int) *logrus.Entry {
	return logger.WithFields(logrus.Fields{"job": jobID, "rank": rank})
}

// Discard returns an entry that drops everything; used as a default by
// components constructed without a logger.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
