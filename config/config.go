// Package config loads the odigen.yaml run configuration.
//
// The file is optional: a missing file yields the defaults. Unknown keys
// are rejected so typos surface instead of silently disabling behavior.
package config

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/model"
)

// DefaultFileName is the configuration file looked up in the working
// directory when no explicit path is given.
const DefaultFileName = "odigen.yaml"

// Config is the parsed run configuration.
type Config struct {
	// Disabled suppresses the diagnostic surface. Emission still runs.
	Disabled bool `yaml:"disabled"`

	// DefaultLifetime applies to service types without an explicit
	// lifetime marker. Empty leaves them unassigned.
	DefaultLifetime string `yaml:"default_lifetime"`

	// Severities overrides per-code diagnostic severities,
	// e.g. "ODI007: error" or "ODI002: off".
	Severities map[string]string `yaml:"severities"`

	// Patterns are the package patterns passed to the loader. Defaults
	// to "./..." when empty.
	Patterns []string `yaml:"patterns"`

	// Output is the per-package generated file name.
	Output string `yaml:"output"`

	// DIImportPath overrides the runtime package the generated
	// registrations import.
	DIImportPath string `yaml:"di_import_path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{Patterns: []string{"./..."}}
}

// Load reads and validates the configuration at path. A missing file is
// not an error and yields Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes a configuration document, rejecting unknown fields.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = []string{"./..."}
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, ok := model.ParseLifetime(c.DefaultLifetime); !ok {
		return errors.Newf("config: unknown default_lifetime %q", c.DefaultLifetime)
	}
	for code, sev := range c.Severities {
		if !diag.KnownCode(diag.Code(code)) {
			return errors.Newf("config: unknown diagnostic code %q", code)
		}
		if _, ok := diag.ParseSeverity(sev); !ok {
			return errors.Newf("config: unknown severity %q for %s", sev, code)
		}
	}
	return nil
}

// Lifetime returns the parsed default lifetime.
func (c Config) Lifetime() model.Lifetime {
	lt, _ := model.ParseLifetime(c.DefaultLifetime)
	return lt
}

// CollectorOptions translates the configuration into diagnostic collector
// options.
func (c Config) CollectorOptions() []diag.Option {
	var opts []diag.Option
	if c.Disabled {
		opts = append(opts, diag.Disabled())
	}
	if len(c.Severities) > 0 {
		overrides := make(map[diag.Code]diag.Severity, len(c.Severities))
		for code, sev := range c.Severities {
			s, _ := diag.ParseSeverity(sev)
			overrides[diag.Code(code)] = s
		}
		opts = append(opts, diag.WithOverrides(overrides))
	}
	return opts
}
