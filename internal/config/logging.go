package config

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the global logrus logger from the loaded config.
func SetupLogging(cfg *Config) {
	log.SetOutput(os.Stdout)

	if strings.ToLower(cfg.LogFormat) == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Invalid log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
