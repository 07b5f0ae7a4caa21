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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alex-unruh/repository/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  type: postgresql
  host: db.internal
  port: 5433
  username: app
  dbname: shop
  sslmode: require
  max_open_conns: 20
  slow_query_time: 500ms
  params:
    application_name: shop
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, database.DriverPostgres, cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "shop", cfg.Database.DBName)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.SlowQueryTime)
	assert.Equal(t, map[string]string{"application_name": "shop"}, cfg.Database.Params)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// defaults fill what the file leaves out
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "db.internal", cfg.String("database.host"))
	assert.True(t, cfg.Exists("database.port"))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  type: mysql
  host: file-host
  dbname: from_file
`)
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_NAME", "from_env")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")
	t.Setenv("DB_CONNECT_TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, database.DriverMySQL, cfg.Database.Type)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, "from_env", cfg.Database.DBName)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Database.EnableQueryLog)
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite3")
	t.Setenv("DB_NAME", ":memory:")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, database.DriverSQLite, cfg.Database.Type)
	assert.Empty(t, cfg.Database.Host)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadValidation(t *testing.T) {
	path := writeConfig(t, `
database:
  type: mysql
  port: 70000
log:
  format: xml
`)

	_, err := Load(path)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), err.Error())
	fields := map[string]string{}
	for _, fe := range verr.Errors {
		fields[fe.Field] = fe.Rule
	}
	assert.Equal(t, "required_unless=Type sqlite", fields["database.host"])
	assert.Equal(t, "required", fields["database.dbname"])
	assert.Equal(t, "lte=65535", fields["database.port"])
	assert.Contains(t, fields["log.format"], "oneof")
}

func TestValidateUnsupportedType(t *testing.T) {
	cfg := &Config{Database: database.ConnectionConfig{Type: "oracle", Host: "h", DBName: "d"}}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.type")

	assert.Error(t, Validate(nil))
}

func TestOpen(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_NAME", ":memory:")
	t.Setenv("DB_SLOW_QUERY_TIME", "0s")

	cfg, err := Load("")
	require.NoError(t, err)

	prev := database.GetConnection()
	t.Cleanup(func() {
		_ = database.CloseDB()
		database.SetConnection(prev)
	})
	c, err := cfg.Open(context.Background(), database.WithLogger(database.NopLogger{}))
	require.NoError(t, err)
	assert.Same(t, c, database.GetConnection())
	assert.True(t, database.GetHealthStatus(context.Background()).Healthy)
}
