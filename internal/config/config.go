// Package config loads run settings from a YAML file and the environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, BLOBSYNC_*
// environment variables. Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
)

// Supported storage providers.
const (
	ProviderS3    = "s3"
	ProviderAzure = "azure"
)

// DefaultRetries is the number of SDK retries per upload.
const DefaultRetries = 3

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BLOBSYNC_"

// Config holds the settings of a command-line run.
type Config struct {
	Container   string `yaml:"container"`
	Source      string `yaml:"source"`
	Prefix      string `yaml:"prefix"`
	Account     string `yaml:"account"`
	Credential  string `yaml:"credential"`
	Concurrency int    `yaml:"concurrency"`

	Provider  string `yaml:"provider"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`

	// Retries is the SDK retry count per upload; zero keeps the store default.
	Retries int           `yaml:"retries"`
	// Timeout bounds each HTTP attempt; zero means no limit beyond the SDK's.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Concurrency: blobtypes.DefaultConcurrency,
		Provider:    ProviderAzure,
		Retries:     DefaultRetries,
		Region:      "us-east-1",
	}
}

// Load reads path, if non-empty, over the defaults and then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Container = getEnv(EnvPrefix+"CONTAINER", c.Container)
	c.Source = getEnv(EnvPrefix+"SOURCE", c.Source)
	c.Prefix = getEnv(EnvPrefix+"PREFIX", c.Prefix)
	c.Account = getEnv(EnvPrefix+"ACCOUNT", c.Account)
	c.Credential = getEnv(EnvPrefix+"CREDENTIAL", c.Credential)
	c.Provider = getEnv(EnvPrefix+"PROVIDER", c.Provider)
	c.Region = getEnv(EnvPrefix+"REGION", c.Region)
	c.Endpoint = getEnv(EnvPrefix+"ENDPOINT", c.Endpoint)

	if v, ok := os.LookupEnv(EnvPrefix + "CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"CONCURRENCY", fmt.Sprintf("not a number: %q", v))
		}
		c.Concurrency = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"PATH_STYLE", fmt.Sprintf("not a boolean: %q", v))
		}
		c.PathStyle = b
	}
	if v, ok := os.LookupEnv(EnvPrefix + "RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"RETRIES", fmt.Sprintf("not a number: %q", v))
		}
		c.Retries = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"TIMEOUT", fmt.Sprintf("not a duration: %q", v))
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks settings that the run itself does not validate.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderS3, ProviderAzure:
	default:
		return errors.NewValidationError("provider", fmt.Sprintf("unsupported provider %q", c.Provider))
	}
	if c.Retries < 0 {
		return errors.NewValidationError("retries", "cannot be negative")
	}
	if c.Timeout < 0 {
		return errors.NewValidationError("timeout", "cannot be negative")
	}
	return nil
}

// RunConfig returns the run inputs described by c.
func (c *Config) RunConfig() blobtypes.RunConfig {
	return blobtypes.RunConfig{
		ContainerName:     c.Container,
		SourceDirectory:   c.Source,
		DestinationPrefix: c.Prefix,
		AccountID:         c.Account,
		AccountCredential: c.Credential,
		ConcurrencyLimit:  c.Concurrency,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
