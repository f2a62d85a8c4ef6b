// Package config loads the pipeline configuration from the environment.
// Everything is carried in one explicit struct handed to constructors; no
// package holds process-wide credential state.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Defaults for optional settings.
const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultRegion    = "us-east-2"
	DefaultDataDir   = "data"
	defaultEnvFile   = ".env"
	defaultNamespace = "spotify-pulse"
)

// Config holds everything the pipeline needs to run.
type Config struct {
	// Spotify application credentials.
	SpotifyID     string
	SpotifySecret string

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// Bucket is the S3 bucket holding raw and processed snapshots. When
	// empty, snapshots go to DataDir on the local filesystem instead.
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	DataDir         string

	// Addr is the web server listen address.
	Addr string
}

// Load reads configuration from the environment, first merging a .env file
// if one exists. Returns an error if a required setting is missing.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may carry everything.
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", defaultEnvFile, err)
	}

	cfg := &Config{
		SpotifyID:       os.Getenv("SPOTIFY_ID"),
		SpotifySecret:   os.Getenv("SPOTIFY_SECRET"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Bucket:          os.Getenv("S3_BUCKET"),
		Region:          getenvDefault("AWS_REGION", DefaultRegion),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		DataDir:         getenvDefault("DATA_DIR", DefaultDataDir),
		Addr:            getenvDefault("ADDR", DefaultAddr),
	}

	if cfg.SpotifyID == "" || cfg.SpotifySecret == "" {
		return nil, errors.New("SPOTIFY_ID and SPOTIFY_SECRET must be set")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL must be set")
	}

	return cfg, nil
}

// Namespace is the logical bucket name reported in event payloads when
// running without S3.
func (c *Config) Namespace() string {
	if c.Bucket != "" {
		return c.Bucket
	}
	return defaultNamespace
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
