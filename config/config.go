/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the database configuration from defaults, an optional
// YAML file and DB_* environment variables.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alex-unruh/repository/database"
	"github.com/alex-unruh/repository/utils"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. DB_HOST or
// DB_MAX_OPEN_CONNS.
const EnvPrefix = "DB_"

// Config is the root configuration document.
type Config struct {
	Database database.ConnectionConfig `koanf:"database" json:"database"`
	Log      LogConfig                 `koanf:"log" json:"log"`

	k *koanf.Koanf
}

type LogConfig struct {
	Level  string `koanf:"level" json:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format string `koanf:"format" json:"format" validate:"omitempty,oneof=text json"`
}

// Load loads configuration with priority, highest first:
//  1. DB_* environment variables
//  2. the YAML file at path, when path is not empty
//  3. default values
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k
	cfg.Database.Type = cfg.Database.Driver()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey maps DB_MAX_OPEN_CONNS to database.max_open_conns. DB_NAME is the
// database name.
func envKey(k, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	if key == "name" {
		key = "dbname"
	}
	return "database." + key, v
}

func loadDefaults(k *koanf.Koanf) error {
	d := database.DefaultConnectionConfig()
	defaults := map[string]any{
		"database.max_idle_conns":     d.MaxIdleConns,
		"database.max_open_conns":     d.MaxOpenConns,
		"database.conn_max_lifetime":  d.ConnMaxLifetime.String(),
		"database.conn_max_idle_time": d.ConnMaxIdleTime.String(),
		"database.connect_timeout":    d.ConnectTimeout.String(),
		"database.read_timeout":       d.ReadTimeout.String(),
		"database.write_timeout":      d.WriteTimeout.String(),
		"database.slow_query_time":    d.SlowQueryTime.String(),

		"log.level":  "info",
		"log.format": "text",
	}
	return k.Load(confmap.Provider(defaults, "."), nil)
}

// String returns a raw value by dotted key, e.g. "database.host".
func (c *Config) String(key string) string {
	if c.k == nil {
		return ""
	}
	return c.k.String(key)
}

// Exists reports whether any source set key.
func (c *Config) Exists(key string) bool {
	return c.k != nil && c.k.Exists(key)
}

// ApplyLogging configures the named logrus loggers with the log section.
func (c *Config) ApplyLogging() {
	if c.Log.Format != "" {
		utils.ConfigureConsoleLogFormat(c.Log.Format)
	}
	if c.Log.Level != "" {
		utils.ConfigureLogLevel(c.Log.Level)
	}
}

// Open applies the log section and installs the database section as the
// global connection.
func (c *Config) Open(ctx context.Context, opts ...database.Option) (*database.Connection, error) {
	c.ApplyLogging()
	return database.InitDB(ctx, &c.Database, opts...)
}
