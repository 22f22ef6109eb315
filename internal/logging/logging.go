package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger. format is "text" or "json".
func Setup(level, format string) error {
	return configure(log.StandardLogger(), os.Stderr, level, format)
}

func configure(l *log.Logger, out io.Writer, level, format string) error {
	lvl := log.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := log.ParseLevel(s)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", level)
		}
		lvl = parsed
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("invalid log format %q", format)
	}

	l.SetOutput(out)
	l.SetLevel(lvl)
	return nil
}
