// Copyright 2025 Poiesic Systems
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


package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. TASKVAULT_BACKENDS_DOCUMENT_SAVE.
const EnvPrefix = "TASKVAULT"

// Load reads a YAML configuration file over the defaults.
// An empty path loads defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backends.relational_search", cfg.Backends.RelationalSearch)
	v.SetDefault("backends.relational_save", cfg.Backends.RelationalSave)
	v.SetDefault("backends.document_save", cfg.Backends.DocumentSave)
	v.SetDefault("relational.driver", cfg.Relational.Driver)
	v.SetDefault("relational.dsn", cfg.Relational.DSN)
	v.SetDefault("document.path", cfg.Document.Path)
	v.SetDefault("document.in_memory", cfg.Document.InMemory)
	v.SetDefault("resolver.workers", cfg.Resolver.Workers)
}

// Write saves cfg as YAML at path, creating parent directories.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
