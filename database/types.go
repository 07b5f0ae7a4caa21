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
	"strings"
	"time"
)

// Supported driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig is the connection parameter bag: where to connect and how
// to tune the pool and the query hooks. Validation expects Type in its
// normalised form (see Driver).
type ConnectionConfig struct {
	Type            string            `koanf:"type" json:"type" validate:"required,oneof=mysql postgres sqlite"`
	Host            string            `koanf:"host" json:"host" validate:"required_unless=Type sqlite"`
	Port            int               `koanf:"port" json:"port" validate:"gte=0,lte=65535"`
	Username        string            `koanf:"username" json:"username"`
	Password        string            `koanf:"password" json:"password"`
	DBName          string            `koanf:"dbname" json:"dbname" validate:"required"`
	SSLMode         string            `koanf:"sslmode" json:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	Charset         string            `koanf:"charset" json:"charset"` // mysql only, defaults to utf8mb4
	Params          map[string]string `koanf:"params" json:"params"`   // extra DSN parameters
	MaxIdleConns    int               `koanf:"max_idle_conns" json:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns    int               `koanf:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration     `koanf:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration     `koanf:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectTimeout  time.Duration     `koanf:"connect_timeout" json:"connect_timeout"`
	ReadTimeout     time.Duration     `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration     `koanf:"write_timeout" json:"write_timeout"`
	EnableQueryLog  bool              `koanf:"enable_query_log" json:"enable_query_log"`
	QueryLogVerbose bool              `koanf:"query_log_verbose" json:"query_log_verbose"`
	SlowQueryTime   time.Duration     `koanf:"slow_query_time" json:"slow_query_time"`
}

// Driver returns the normalised driver name.
func (c *ConnectionConfig) Driver() string {
	switch strings.ToLower(c.Type) {
	case "postgres", "postgresql":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "mysql":
		return DriverMySQL
	default:
		return strings.ToLower(c.Type)
	}
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		SlowQueryTime:   time.Second * 2,
	}
}
