// Package config handles glox.toml interpreter configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a glox.toml configuration file.
type Config struct {
	Debug Debug `toml:"debug"`
	REPL  REPL  `toml:"repl"`

	// Dir is the directory containing the glox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Debug configures diagnostic output.
type Debug struct {
	// TraceExecution logs each instruction as the VM executes it.
	TraceExecution bool `toml:"trace-execution"`
	// PrintCode disassembles each chunk after compilation.
	PrintCode bool `toml:"print-code"`
}

// REPL configures interactive sessions.
type REPL struct {
	// History is the path of the readline history file, relative to Dir
	// unless absolute.
	History string `toml:"history"`
}

// Default returns the configuration used when no glox.toml is found.
func Default() *Config {
	return &Config{
		REPL: REPL{History: ".glox_history"},
	}
}

// Load parses a glox.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "glox.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if c.REPL.History == "" {
		c.REPL.History = ".glox_history"
	}

	return &c, nil
}

// FindAndLoad walks up from startDir to find a glox.toml file, then loads
// and returns it. Returns the defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "glox.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// HistoryPath returns the absolute path of the REPL history file.
func (c *Config) HistoryPath() string {
	if filepath.IsAbs(c.REPL.History) {
		return c.REPL.History
	}
	if c.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return c.REPL.History
		}
		return filepath.Join(home, c.REPL.History)
	}
	return filepath.Join(c.Dir, c.REPL.History)
}
