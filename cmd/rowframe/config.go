// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/magpierre/rowframe"
	"github.com/magpierre/rowframe/arrowtable"
	"github.com/magpierre/rowframe/export"
	"github.com/magpierre/rowframe/flatten"
)

// Config holds the settings of a conversion run. It can be read from a
// YAML or TOML file; command line flags override file values.
type Config struct {
	Input     string `yaml:"input" toml:"input"`
	Output    string `yaml:"output" toml:"output"`
	Format    string `yaml:"format" toml:"format"`
	Separator string `yaml:"separator" toml:"separator"`
	Precision int32  `yaml:"decimal_precision" toml:"decimal_precision"`
	Scale     int32  `yaml:"decimal_scale" toml:"decimal_scale"`
	Verbose   bool   `yaml:"verbose" toml:"verbose"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Separator: flatten.DefaultSeparator,
		Precision: arrowtable.DefaultDecimalPrecision,
		Scale:     arrowtable.DefaultDecimalScale,
	}
}

// LoadConfig reads a configuration file on top of DefaultConfig. The
// file extension selects the syntax.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config file %s", path)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration can be run.
func (c Config) Validate() error {
	if c.Output == "" {
		return errors.New("no output file")
	}
	if c.Separator == "" {
		return errors.New("empty column name separator")
	}
	dec := arrowtable.Config{DecimalPrecision: c.Precision, DecimalScale: c.Scale}
	if err := dec.Validate(); err != nil {
		return err
	}
	_, err := c.ExportFormat()
	return err
}

// ExportFormat returns the configured format, or the format implied by the
// output file extension.
func (c Config) ExportFormat() (export.Format, error) {
	if c.Format != "" {
		return export.ParseFormat(c.Format)
	}
	return export.FormatOf(c.Output)
}

// Options returns the conversion options of the configuration.
func (c Config) Options() []rowframe.Option {
	return []rowframe.Option{
		rowframe.WithSeparator(c.Separator),
		rowframe.WithDecimal(c.Precision, c.Scale),
	}
}
