package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional sea-intercept.yaml file. Command line flags win
// over anything set here.
type Config struct {
	Version string `yaml:"version"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		File   string   `yaml:"file"`
	} `yaml:"log"`

	HTTP struct {
		Timeout      time.Duration `yaml:"timeout"`
		MaxIdleConns int           `yaml:"max_idle_conns"`
	} `yaml:"http"`

	Wait struct {
		DefaultTimeout time.Duration `yaml:"default_timeout"`
	} `yaml:"wait"`

	Fixtures struct {
		Dir string `yaml:"dir"`
	} `yaml:"fixtures"`

	Proxy struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"proxy"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	c := &Config{Version: "1"}
	c.Log.Level = "info"
	c.Log.Writer = []string{"console"}
	c.HTTP.Timeout = 10 * time.Second
	c.HTTP.MaxIdleConns = 128
	c.Wait.DefaultTimeout = 5 * time.Second
	c.Fixtures.Dir = "fixtures"
	return c
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set.
func Load(path string, optional bool) (*Config, error) {
	c := NewConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := c.decode(b); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) decode(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("config: http.timeout must be positive")
	}
	if c.Wait.DefaultTimeout <= 0 {
		return errors.New("config: wait.default_timeout must be positive")
	}
	return nil
}
