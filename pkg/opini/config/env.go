package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DefaultEnvFiles are tried by LoadEnv when no files are named.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv loads environment variables from local env files. Missing files
// are skipped; values in later files win.
func LoadEnv(logger logrus.FieldLogger, files ...string) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger == nil {
		return
	}
	if len(loaded) == 0 {
		logger.Debug("No local env files loaded; relying on process environment")
	} else {
		logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
}

// ApplyEnv overrides fields from OPINI_* environment variables.
func (c *Config) ApplyEnv() {
	c.OutputDir = getEnv("OPINI_OUTPUT_DIR", c.OutputDir)
	c.Timezone = getEnv("OPINI_TIMEZONE", c.Timezone)
	c.Workers = getEnvInt("OPINI_WORKERS", c.Workers)
	c.StoreDSN = getEnv("OPINI_STORE_DSN", c.StoreDSN)
	c.MetricsTextfile = getEnv("OPINI_METRICS_TEXTFILE", c.MetricsTextfile)
	c.FailFast = getEnvBool("OPINI_FAIL_FAST", c.FailFast)
	c.StageTimeout = getEnvDuration("OPINI_STAGE_TIMEOUT", c.StageTimeout)

	c.Classifier.Kind = getEnv("OPINI_CLASSIFIER", c.Classifier.Kind)
	c.Classifier.HTTP.Endpoint = getEnv("OPINI_INFERENCE_ENDPOINT", c.Classifier.HTTP.Endpoint)
	c.Classifier.HTTP.Token = getEnv("OPINI_INFERENCE_TOKEN", c.Classifier.HTTP.Token)

	c.Cloud.MaskPath = getEnv("OPINI_MASK", c.Cloud.MaskPath)
	c.Cloud.FontPath = getEnv("OPINI_FONT", c.Cloud.FontPath)
	c.Cloud.Seed = int64(getEnvInt("OPINI_SEED", int(c.Cloud.Seed)))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
