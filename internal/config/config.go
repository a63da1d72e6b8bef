package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models agrichain.yml.
type Config struct {
	Ledger struct {
		Name     string `yaml:"name"`
		Currency string `yaml:"currency"`
		Seed     bool   `yaml:"seed"`
	} `yaml:"ledger"`
	Fees struct {
		ProcessingRate float64 `yaml:"processing_rate"`
		GSTRate        float64 `yaml:"gst_rate"`
	} `yaml:"fees"`
	Chain struct {
		Enabled        bool   `yaml:"enabled"`
		Mode           string `yaml:"mode"` // mock | http
		Endpoint       string `yaml:"endpoint"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"chain"`
	Content struct {
		Enabled  bool   `yaml:"enabled"`
		Mode     string `yaml:"mode"` // mock | http
		Endpoint string `yaml:"endpoint"`
	} `yaml:"content"`
	Gateway struct {
		Mode string `yaml:"mode"` // mock | none
		Key  string `yaml:"key"`
		// Secret signs gateway webhook callbacks.
		Secret string `yaml:"secret"`
	} `yaml:"gateway"`
	Server struct {
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Ledger.Name == "" {
		return fmt.Errorf("config.ledger.name is required")
	}
	if c.Ledger.Currency == "" {
		return fmt.Errorf("config.ledger.currency is required")
	}
	if c.Fees.ProcessingRate < 0 || c.Fees.ProcessingRate >= 1 {
		return fmt.Errorf("config.fees.processing_rate must be in [0,1)")
	}
	if c.Fees.GSTRate < 0 || c.Fees.GSTRate >= 1 {
		return fmt.Errorf("config.fees.gst_rate must be in [0,1)")
	}
	switch c.Chain.Mode {
	case "", "mock", "http":
	default:
		return fmt.Errorf("config.chain.mode must be mock or http")
	}
	if c.Chain.Enabled && c.Chain.Mode == "http" && c.Chain.Endpoint == "" {
		return fmt.Errorf("config.chain.endpoint required for http mode")
	}
	switch c.Content.Mode {
	case "", "mock", "http":
	default:
		return fmt.Errorf("config.content.mode must be mock or http")
	}
	if c.Content.Enabled && c.Content.Mode == "http" && c.Content.Endpoint == "" {
		return fmt.Errorf("config.content.endpoint required for http mode")
	}
	switch c.Gateway.Mode {
	case "", "mock", "none":
	default:
		return fmt.Errorf("config.gateway.mode must be mock or none")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "agrichain.yml")
}

// Load reads and validates config from the workspace, falling back to the
// defaults when no file exists.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `ledger:
  name: agrichain
  currency: INR
  seed: true

fees:
  processing_rate: 0.02
  gst_rate: 0.18

chain:
  enabled: true
  mode: mock
  endpoint: ""
  timeout_seconds: 5

content:
  enabled: true
  mode: mock
  endpoint: ""

gateway:
  mode: mock
  key: rzp_test_demo_key
  secret: ""

server:
  base_path: /v0
  jwt_secret: ""
`
