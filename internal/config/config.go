package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built once at startup and passed by reference into every
// component constructor. Handlers never read the environment themselves.
type Config struct {
	KratosPublicURL string `yaml:"kratos_public_url" json:"kratosPublicUrl"`
	OIDCProvider    string `yaml:"oidc_provider" json:"oidcProvider"`

	AdminAPIAddr string `yaml:"admin_api_addr" json:"adminApiAddr"`
	WebAppAddr   string `yaml:"webapp_addr" json:"webappAddr"`
	WebAppOrigin string `yaml:"webapp_origin" json:"webappOrigin"`

	DataDir string `yaml:"data_dir" json:"dataDir"`

	ProviderTimeout time.Duration `yaml:"provider_timeout" json:"providerTimeout"`
}

func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.KratosPublicURL) == "" {
		c.KratosPublicURL = "http://localhost:4433"
	}
	if strings.TrimSpace(c.OIDCProvider) == "" {
		c.OIDCProvider = "google"
	}
	if strings.TrimSpace(c.AdminAPIAddr) == "" {
		c.AdminAPIAddr = ":4000"
	}
	if strings.TrimSpace(c.WebAppAddr) == "" {
		c.WebAppAddr = ":3000"
	}
	if strings.TrimSpace(c.WebAppOrigin) == "" {
		c.WebAppOrigin = "http://localhost:3000"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "data"
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.KratosPublicURL)
	if err != nil {
		return fmt.Errorf("kratos_public_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("kratos_public_url: unsupported scheme %q", u.Scheme)
	}
	if strings.TrimSpace(c.OIDCProvider) == "" {
		return fmt.Errorf("oidc_provider is required")
	}
	return nil
}

// Load reads an optional YAML config file, then applies environment
// overrides and defaults. A missing file is not an error; the gateway is
// fully configurable from the environment alone.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
