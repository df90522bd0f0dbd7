// Package logging configures the process wide logrus logger.
package logging

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/sigreer/raidgod/internal/config"
)

// Setup applies the level and format of cfg to the standard logger and
// directs it to out
func Setup(cfg config.Logging, out io.Writer) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	log.SetLevel(level)
	log.SetOutput(out)
	return nil
}
