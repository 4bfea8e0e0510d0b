// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads intcode.toml files describing how a program image is
// run: machine options plus defaults for the command line.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/lassandro/intcode/pkg/machine"
)

const FILENAME = "intcode.toml"

const (
	POLICY_SUSPEND = "suspend"
	POLICY_FAULT   = "fault"
)

type Config struct {
	Machine MachineConfig `toml:"machine"`
	Run     RunConfig     `toml:"run"`

	// Path of the file the config was read from, empty for defaults
	Path string `toml:"-"`
}

type MachineConfig struct {
	MemorySize  int64  `toml:"memory-size"`
	Growth      bool   `toml:"growth"`
	MemoryLimit int64  `toml:"memory-limit"`
	Strict      bool   `toml:"strict"`
	InputPolicy string `toml:"input-policy"`
}

type RunConfig struct {
	MaxSteps int64   `toml:"max-steps"`
	ASCII    bool    `toml:"ascii"`
	Input    []int64 `toml:"input"`
	Poke     []Poke  `toml:"poke"`
}

// Poke patches a memory cell before the first run.
type Poke struct {
	Addr  int64 `toml:"addr"`
	Value int64 `toml:"value"`
}

func Default() *Config {
	return &Config{
		Machine: MachineConfig{
			Growth:      true,
			MemoryLimit: machine.DEFAULT_MEMORY_LIMIT,
			InputPolicy: POLICY_SUSPEND,
		},
	}
}

// Load reads a config file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	cfg := Default()

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}

	cfg.Path = path
	return cfg, nil
}

// FindAndLoad walks up from dir looking for an intcode.toml. It returns nil
// and no error when none exists.
func FindAndLoad(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)

	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FILENAME)

		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)

		if parent == dir {
			return nil, nil
		}

		dir = parent
	}
}

func (cfg *Config) Validate() error {
	if cfg.Machine.MemorySize < 0 {
		return errors.Errorf("memory-size %d is negative", cfg.Machine.MemorySize)
	}

	if cfg.Machine.MemoryLimit <= 0 {
		return errors.Errorf("memory-limit %d is not positive", cfg.Machine.MemoryLimit)
	}

	if cfg.Run.MaxSteps < 0 {
		return errors.Errorf("max-steps %d is negative", cfg.Run.MaxSteps)
	}

	if _, err := cfg.Policy(); err != nil {
		return err
	}

	for _, poke := range cfg.Run.Poke {
		if poke.Addr < 0 {
			return errors.Errorf("poke address %d is negative", poke.Addr)
		}
	}

	return nil
}

func (cfg *Config) Policy() (machine.InputPolicy, error) {
	switch cfg.Machine.InputPolicy {
	case POLICY_SUSPEND, "":
		return machine.SuspendOnEmpty, nil
	case POLICY_FAULT:
		return machine.FaultOnEmpty, nil
	}

	return 0, errors.Errorf(
		"input-policy %q is not %q or %q",
		cfg.Machine.InputPolicy, POLICY_SUSPEND, POLICY_FAULT,
	)
}

// Options translates the machine section into machine options. Run input is
// included so Reset restores it.
func (cfg *Config) Options() ([]machine.Option, error) {
	policy, err := cfg.Policy()

	if err != nil {
		return nil, err
	}

	opts := []machine.Option{
		machine.Growth(cfg.Machine.Growth),
		machine.MemoryLimit(cfg.Machine.MemoryLimit),
		machine.Strict(cfg.Machine.Strict),
		machine.Policy(policy),
	}

	if cfg.Machine.MemorySize > 0 {
		opts = append(opts, machine.MemorySize(cfg.Machine.MemorySize))
	}

	if len(cfg.Run.Input) > 0 {
		opts = append(opts, machine.Input(cfg.Run.Input...))
	}

	return opts, nil
}

// Apply writes the configured pokes into mc.
func (cfg *Config) Apply(mc *machine.Machine) error {
	for _, poke := range cfg.Run.Poke {
		if err := mc.Poke(poke.Addr, poke.Value); err != nil {
			return errors.Wrapf(err, "poke [%d] = %d", poke.Addr, poke.Value)
		}
	}

	return nil
}
