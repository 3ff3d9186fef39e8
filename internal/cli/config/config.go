package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "fmcg.yaml"

	// EnvAPIURL overrides the backend when no project config is present
	EnvAPIURL = "FMCG_API_URL"

	DefaultAPIURL = "http://localhost:8000"
)

// Server represents a product-mastering backend the CLI can talk to
type Server struct {
	Alias string `yaml:"alias"`
	URL   string `yaml:"url"`
}

// Timeouts bounds how long a single API request may take.
// Long applies to uploads, LLM mastering, exports and chatbot queries.
type Timeouts struct {
	Default time.Duration `yaml:"default,omitempty"`
	Long    time.Duration `yaml:"long,omitempty"`
}

// Config represents the CLI configuration file
type Config struct {
	Servers  []Server `yaml:"servers"`
	Timeouts Timeouts `yaml:"timeouts,omitempty"`
}

// DefaultConfig returns the configuration written by `fmcg init`
func DefaultConfig() *Config {
	return &Config{
		Servers: []Server{
			{
				Alias: "local",
				URL:   DefaultAPIURL,
			},
		},
	}
}

// FindConfigFile searches for fmcg.yaml in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return FindConfigFileFrom(currentDir)
}

// FindConfigFileFrom walks up from dir until it finds fmcg.yaml or reaches root
func FindConfigFileFrom(start string) (string, error) {
	dir := start
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory", ConfigFileName, start)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for i := range cfg.Servers {
		cfg.Servers[i].URL = strings.TrimRight(strings.TrimSpace(cfg.Servers[i].URL), "/")
		if cfg.Servers[i].URL == "" {
			return nil, fmt.Errorf("server %q has no url", cfg.Servers[i].Alias)
		}
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories.
// Without a config file it falls back to FMCG_API_URL, then to the local default.
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return FromEnv(), nil
	}

	return Load(configPath)
}

// FromEnv builds a single-server config from FMCG_API_URL
func FromEnv() *Config {
	url := strings.TrimRight(os.Getenv(EnvAPIURL), "/")
	if url == "" {
		url = DefaultAPIURL
	}
	return &Config{Servers: []Server{{Alias: "env", URL: url}}}
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns a server by its base URL
func (c *Config) GetServerByURL(url string) (*Server, error) {
	url = strings.TrimRight(url, "/")
	for i := range c.Servers {
		if c.Servers[i].URL == url {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with url '%s' not found", url)
}

// GetServerByURLOrAlias finds a server by URL first, then by alias
func (c *Config) GetServerByURLOrAlias(v string) (*Server, error) {
	if s, err := c.GetServerByURL(v); err == nil {
		return s, nil
	}
	if s, err := c.GetServerByAlias(v); err == nil {
		return s, nil
	}
	return nil, fmt.Errorf("server with url or alias '%s' not found", v)
}

// GetDefaultServer returns the first server in the list
func (c *Config) GetDefaultServer() (*Server, error) {
	if len(c.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", ConfigFileName)
	}
	return &c.Servers[0], nil
}
