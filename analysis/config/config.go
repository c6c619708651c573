// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config is the configuration of a pointer analysis run.
// To add elements to a config file, add fields to this struct.
// If some field is not defined in the config file, it keeps its default value from NewDefault.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// Report lists the entities whose points-to sets are reported. An empty list reports every value.
	Report []EntityFilter `yaml:"report"`
}

// Options are the options of the solver
type Options struct {
	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`

	// FieldLimit is the maximum number of field slots of an object. Objects whose type has more flattened fields
	// are field-insensitive.
	FieldLimit int `yaml:"field-limit"`

	// IndirectCallLimit is the maximum number of indirect call edges resolved during one analysis
	IndirectCallLimit int `yaml:"ind-call-limit"`

	// FieldSensitive can be set to false to make every object field-insensitive
	FieldSensitive bool `yaml:"field-sensitive"`

	// FirstFieldEqBase makes the field object at offset 0 of an object the object itself
	FirstFieldEqBase bool `yaml:"first-field-eq-base"`

	// PtsDiscipline is either DisciplinePlain or DisciplineDiff
	PtsDiscipline string `yaml:"pts-discipline"`

	// LazyCycleDetection enables lazy cycle detection: cycles are searched for only when a copy edge joins two nodes
	// with identical points-to sets
	LazyCycleDetection bool `yaml:"lazy-cycle-detection"`

	// ReadCache is a points-to cache file to load results from instead of solving from scratch
	ReadCache string `yaml:"read-cache"`

	// WriteCache is a file where the results are written after solving
	WriteCache string `yaml:"write-cache"`

	// ResultDB is an SQLite database file where results are exported
	ResultDB string `yaml:"result-db"`
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Report:     nil,
		Options: Options{
			LogLevel:           int(InfoLevel),
			SilenceWarn:        false,
			FieldLimit:         DefaultFieldLimit,
			IndirectCallLimit:  DefaultIndirectCallLimit,
			FieldSensitive:     true,
			FirstFieldEqBase:   false,
			PtsDiscipline:      DisciplineDiff,
			LazyCycleDetection: false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return LoadFromBytes(filename, b)
}

// LoadFromBytes parses the configuration in b, where filename is the file b has been read from
func LoadFromBytes(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}

	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.PtsDiscipline == "" {
		cfg.PtsDiscipline = DisciplineDiff
	}

	for i := range cfg.Report {
		cfg.Report[i] = compileRegexes(cfg.Report[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if some option has an invalid value
func (c Config) Validate() error {
	if c.FieldLimit < 0 {
		return fmt.Errorf("field-limit must be non-negative, got %d", c.FieldLimit)
	}
	if c.IndirectCallLimit < 0 {
		return fmt.Errorf("ind-call-limit must be non-negative, got %d", c.IndirectCallLimit)
	}
	switch c.PtsDiscipline {
	case DisciplinePlain, DisciplineDiff:
	default:
		return fmt.Errorf("unknown pts-discipline %q, expected %q or %q", c.PtsDiscipline, DisciplinePlain,
			DisciplineDiff)
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	if path.IsAbs(filename) {
		return filename
	}
	return path.Join(path.Dir(c.sourceFile), filename)
}

// Verbose returns true if the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// IsReported returns true if the entity with the given name and kind should be reported. When no report filter is
// set, only values are reported.
func (c Config) IsReported(name string, kind string) bool {
	if len(c.Report) == 0 {
		return kind == "value"
	}
	for _, f := range c.Report {
		if f.Matches(name, kind) {
			return true
		}
	}
	return false
}
