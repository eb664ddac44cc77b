// Package config provides configuration for the tracyfy CLI.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds CLI configuration.
type Config struct {
	// ProjectDir is the project root the CLI operates on.
	ProjectDir string
	// Remote is the git remote used for counter synchronization.
	Remote string
	// LogLevel is the logrus level name (debug, info, warn, error).
	LogLevel string
	// Sync enables pull/push around ID allocation.
	Sync bool
	// NoCache disables the sqlite scan cache.
	NoCache bool
	// SyncTimeout bounds one pull or push during allocation.
	SyncTimeout time.Duration
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		ProjectDir:  getEnv("TRACYFY_DIR", "."),
		Remote:      getEnv("TRACYFY_REMOTE", "origin"),
		LogLevel:    getEnv("TRACYFY_LOG_LEVEL", "info"),
		Sync:        getEnvBool("TRACYFY_SYNC", false),
		NoCache:     getEnvBool("TRACYFY_NO_CACHE", false),
		SyncTimeout: getEnvDuration("TRACYFY_SYNC_TIMEOUT", 30*time.Second),
	}
}

// FromArgs creates a Config from explicit values, with env fallbacks.
func FromArgs(projectDir, remote string) *Config {
	cfg := FromEnv()
	if projectDir != "" {
		cfg.ProjectDir = projectDir
	}
	if remote != "" {
		cfg.Remote = remote
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
