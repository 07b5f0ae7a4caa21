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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// sqliteMemory is the DBName that selects a private in-memory database.
const sqliteMemory = ":memory:"

// Option customises Open.
type Option func(*Connection)

// WithLogger sets the connection logger. The global logger is used otherwise.
func WithLogger(l Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueryHook adds an extra Bun query hook.
func WithQueryHook(h bun.QueryHook) Option {
	return func(c *Connection) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// Open builds the DSN for cfg, opens the pool, applies pool settings and query
// hooks, and pings the server within cfg.ConnectTimeout.
func Open(ctx context.Context, cfg *ConnectionConfig, opts ...Option) (*Connection, error) {
	if cfg == nil {
		return nil, ErrEmptyConfig
	}
	c := &Connection{config: *cfg, logger: GetLogger()}
	for _, opt := range opts {
		opt(c)
	}
	if c.config.ConnectTimeout <= 0 {
		c.config.ConnectTimeout = 30 * time.Second
	}

	driverName, dsn, dialect, err := buildDriver(&c.config)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", c.config.Driver(), err)
	}
	c.sqlDB = sqlDB
	c.db = bun.NewDB(sqlDB, dialect)
	c.configurePool()
	c.installHooks()

	pingCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()
	if err := c.db.PingContext(pingCtx); err != nil {
		_ = c.db.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}
	c.connected = true

	c.logger.Info("Database connected successfully", "type", c.config.Driver(), "host", c.config.Host, "dbname", c.config.DBName)
	return c, nil
}

func buildDriver(cfg *ConnectionConfig) (driverName, dsn string, dialect schema.Dialect, err error) {
	switch cfg.Driver() {
	case DriverMySQL:
		return "mysql", MySQLDSN(cfg), mysqldialect.New(), nil
	case DriverPostgres:
		return "postgres", PostgresDSN(cfg), pgdialect.New(), nil
	case DriverSQLite:
		return sqliteshim.ShimName, SQLiteDSN(cfg), sqlitedialect.New(), nil
	default:
		return "", "", nil, fmt.Errorf("%w: %s, supported types: %v", ErrUnsupportedType, cfg.Type,
			[]string{DriverMySQL, DriverPostgres, DriverSQLite})
	}
}

// MySQLDSN renders cfg through the driver's own DSN formatter.
func MySQLDSN(cfg *ConnectionConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": charset}
	for k, v := range cfg.Params {
		mc.Params[k] = v
	}
	return mc.FormatDSN()
}

// PostgresDSN renders cfg as a postgres:// URL understood by lib/pq.
func PostgresDSN(cfg *ConnectionConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

// SQLiteDSN maps DBName to a database file. ":memory:" selects an in-memory
// database; a name without extension gets ".db" appended.
func SQLiteDSN(cfg *ConnectionConfig) string {
	name := cfg.DBName
	if name != sqliteMemory && !strings.HasPrefix(name, "file:") && !strings.Contains(name, ".") {
		name += ".db"
	}
	if len(cfg.Params) == 0 {
		return name
	}
	keys := make([]string, 0, len(cfg.Params))
	for k := range cfg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(cfg.Params[k]))
	}
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + strings.Join(pairs, "&")
}

func (c *Connection) configurePool() {
	cfg := &c.config
	if cfg.Driver() == DriverSQLite && cfg.DBName == sqliteMemory {
		// every pooled connection would otherwise see its own empty database
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
		cfg.ConnMaxIdleTime = 0
	}
	if cfg.MaxIdleConns > 0 {
		c.sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		c.sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	c.sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	c.sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func (c *Connection) installHooks() {
	c.db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(false),
		bundebug.FromEnv("BUNDEBUG"),
	))
	if c.config.EnableQueryLog {
		c.db.AddQueryHook(NewQueryHook(os.Stdout, c.config.QueryLogVerbose))
	}
	if c.config.SlowQueryTime > 0 {
		c.db.AddQueryHook(&SlowQueryHook{Threshold: c.config.SlowQueryTime, Logger: c.logger})
	}
	for _, h := range c.hooks {
		c.db.AddQueryHook(h)
	}
}
