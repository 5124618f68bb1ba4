// Package common provides configuration, logging and key helpers shared by
// the namereg commands.
package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the nameserver configuration file.
type Config struct {
	HTTPAddr     string   `yaml:"http_addr" toml:"http_addr"`
	MetricsAddr  string   `yaml:"metrics_addr" toml:"metrics_addr"`
	AdminToken   string   `yaml:"admin_token" toml:"admin_token"`
	EnablePprof  bool     `yaml:"enable_pprof" toml:"enable_pprof"`
	CORSOrigins  []string `yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" toml:"max_body_bytes"`

	DrainDuration   time.Duration `yaml:"drain_duration" toml:"drain_duration"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	Log LogConfig `yaml:"log" toml:"log"`

	// Users maps usernames to base64 public keys registered at startup.
	Users map[string]string `yaml:"users" toml:"users"`

	// BootstrapUser, when set and not listed in Users, gets a freshly
	// generated keypair whose private key is printed once at startup.
	BootstrapUser string `yaml:"bootstrap_user" toml:"bootstrap_user"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:        ":8888",
		ShutdownTimeout: 10 * time.Second,
		Log:             LogConfig{Level: "info"},
		Users:           map[string]string{},
	}
}

type configEncoding struct {
	unmarshal func([]byte, any) error
	marshal   func(any) ([]byte, error)
}

func marshalTOML(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var configEncodings = map[string]configEncoding{
	".yaml": {unmarshal: yaml.Unmarshal, marshal: yaml.Marshal},
	".yml":  {unmarshal: yaml.Unmarshal, marshal: yaml.Marshal},
	".toml": {unmarshal: toml.Unmarshal, marshal: marshalTOML},
}

func encodingFor(path string) (configEncoding, error) {
	ext := strings.ToLower(filepath.Ext(path))
	enc, ok := configEncodings[ext]
	if !ok {
		return configEncoding{}, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", ext)
	}
	return enc, nil
}

// LoadConfig reads a YAML or TOML config file, chosen by extension, over
// the defaults.
func LoadConfig(path string) (*Config, error) {
	enc, err := encodingFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := enc.unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Users == nil {
		cfg.Users = map[string]string{}
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in the encoding chosen by extension.
func SaveConfig(path string, cfg *Config) error {
	enc, err := encodingFor(path)
	if err != nil {
		return err
	}

	data, err := enc.marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
