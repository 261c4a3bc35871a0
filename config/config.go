// Copyright 2022 Google LLC
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

// Package config loads the YAML configuration shared by the hydra binaries.
//
// Example hydra.yaml:
//
//	primeBits: 512
//	pbkdf2Rounds: 100000
//	storeType: file
//	storeDir: /var/lib/hydra
package config

import (
	"fmt"
	"os"

	"github.com/hydra-project/hydra/authority"
	"github.com/hydra-project/hydra/constants"
	"github.com/hydra-project/hydra/store"
	"github.com/hydra-project/hydra/store/file"
	"github.com/hydra-project/hydra/store/memory"
	"sigs.k8s.io/yaml"
)

// DefaultConfigName is the file name looked up in the user config directory.
const DefaultConfigName = "hydra.yaml"

// Supported store types.
const (
	StoreTypeFile   = "file"
	StoreTypeMemory = "memory"
)

// Config holds authority and storage settings.
type Config struct {
	PrimeBits    int    `json:"primeBits,omitempty"`
	PBKDF2Rounds int    `json:"pbkdf2Rounds,omitempty"`
	StoreType    string `json:"storeType,omitempty"`
	StoreDir     string `json:"storeDir,omitempty"`
}

// Default returns a Config with every optional field set.
func Default() *Config {
	return &Config{
		PrimeBits:    constants.MinPrimeBits,
		PBKDF2Rounds: constants.DefaultPBKDF2Rounds,
		StoreType:    StoreTypeFile,
	}
}

// DefaultPath returns the default location of the configuration file.
func DefaultPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory location: %v", err)
	}
	return fmt.Sprintf("%s/%s", cfgDir, DefaultConfigName), nil
}

// Parse decodes YAML on top of the defaults and validates the result.
// Unknown fields are rejected.
func Parse(yamlBytes []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(yamlBytes, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	yamlBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}
	return Parse(yamlBytes)
}

// Validate checks field ranges and the store settings.
func (c *Config) Validate() error {
	if c.PrimeBits < constants.MinPrimeBits {
		return fmt.Errorf("primeBits must be at least %d, got %d", constants.MinPrimeBits, c.PrimeBits)
	}
	if c.PBKDF2Rounds < constants.MinPBKDF2Rounds {
		return fmt.Errorf("pbkdf2Rounds must be at least %d, got %d", constants.MinPBKDF2Rounds, c.PBKDF2Rounds)
	}
	switch c.StoreType {
	case StoreTypeFile:
		if c.StoreDir == "" {
			return fmt.Errorf("storeDir is required for the %q store", StoreTypeFile)
		}
	case StoreTypeMemory:
	default:
		return fmt.Errorf("unknown storeType %q", c.StoreType)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// OpenBackend returns the store.Backend selected by the configuration.
func (c *Config) OpenBackend() (store.Backend, error) {
	switch c.StoreType {
	case StoreTypeFile:
		b, err := file.New(c.StoreDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	case StoreTypeMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storeType %q", c.StoreType)
	}
}

// AuthorityOptions returns the authority options implied by the configuration.
func (c *Config) AuthorityOptions() []authority.Option {
	return []authority.Option{
		authority.WithPrimeBits(c.PrimeBits),
		authority.WithPBKDF2Rounds(c.PBKDF2Rounds),
	}
}
