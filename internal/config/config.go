// Package config loads the optional YAML project configuration
// (leandoc.yml) with environment variable expansion.
package config

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jwtly10/leandoc"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is probed in the working directory when no --config flag
// is given.
const DefaultFileName = "leandoc.yml"

type Config struct {
	Template     string `yaml:"template"`
	TemplateFile string `yaml:"template_file"`
	NoRaw        bool   `yaml:"no_raw"`
	NoBackup     bool   `yaml:"no_backup"`
}

func Default() Config {
	return Config{Template: "plain"}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Template, validation.Required, validation.In("plain", "report")),
	)
}

// GenOptions maps the config onto generator options.
func (c Config) GenOptions() leandoc.Options {
	return leandoc.Options{
		TemplateName:        c.Template,
		TemplateFile:        c.TemplateFile,
		AllowRawPassthrough: !c.NoRaw,
	}
}

// Load reads and validates a config file, expanding ${ENV} references in
// its contents.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
