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
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu   sync.RWMutex
	globalConn *Connection
)

// GetDB returns the global Bun database instance, or nil before InitDB.
func GetDB() *bun.DB {
	if c := GetConnection(); c != nil {
		return c.DB()
	}
	return nil
}

// GetConnection returns the global connection.
func GetConnection() *Connection {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConn
}

// SetConnection replaces the global connection without closing the old one.
func SetConnection(c *Connection) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConn = c
}

// InitDB opens cfg and installs it as the global connection. A previously
// installed connection is closed.
func InitDB(ctx context.Context, cfg *ConnectionConfig, opts ...Option) (*Connection, error) {
	c, err := Open(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	globalMu.Lock()
	prev := globalConn
	globalConn = c
	globalMu.Unlock()
	if prev != nil && prev != c {
		_ = prev.Close()
	}
	return c, nil
}

// CloseDB closes and clears the global connection.
func CloseDB() error {
	globalMu.Lock()
	c := globalConn
	globalConn = nil
	globalMu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

// GetHealthStatus returns the global connection's health.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if c := GetConnection(); c != nil {
		return c.HealthCheck(ctx)
	}
	return &HealthStatus{LastError: ErrNotInitialized.Error()}
}

// GetDatabaseStats returns the global connection's pool statistics.
func GetDatabaseStats() *DBStats {
	if c := GetConnection(); c != nil {
		return c.Stats()
	}
	return &DBStats{}
}
