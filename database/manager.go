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
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// Connection owns a Bun database handle together with the parameters it was
// opened with. It is safe for concurrent use.
type Connection struct {
	config    ConnectionConfig
	db        *bun.DB
	sqlDB     *sql.DB
	logger    Logger
	hooks     []bun.QueryHook
	mu        sync.RWMutex
	connected bool
	closed    bool
	lastError error
	health    *HealthStatus
}

// NewConnection wraps an already opened Bun handle.
func NewConnection(db *bun.DB, cfg *ConnectionConfig, opts ...Option) *Connection {
	c := &Connection{db: db, logger: GetLogger(), connected: db != nil}
	if cfg != nil {
		c.config = *cfg
	}
	if db != nil {
		c.sqlDB = db.DB
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns a copy of the connection parameters.
func (c *Connection) Config() ConnectionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// DB returns the Bun handle, or nil once the connection is closed.
func (c *Connection) DB() *bun.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Connection) SQLDB() *sql.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sqlDB
}

func (c *Connection) Logger() Logger {
	return c.logger
}

// Ping returns ErrConnectionClosed after Close and ErrNotConnected when no
// handle was ever attached.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.RLock()
	db, closed := c.db, c.closed
	c.mu.RUnlock()
	if closed {
		return ErrConnectionClosed
	}
	if db == nil {
		return ErrNotConnected
	}
	return db.PingContext(ctx)
}

// HealthCheck pings the database with a five second ceiling and records the
// outcome together with pool statistics.
func (c *Connection) HealthCheck(ctx context.Context) *HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start, Connected: c.connected}
	if c.closed {
		status.LastError = ErrConnectionClosed.Error()
		c.health = status
		return status
	}
	if c.db == nil {
		status.LastError = ErrNotInitialized.Error()
		c.health = status
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := c.db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
		c.lastError = err
		c.logger.Warn("Database health check failed", "error", err)
	} else {
		status.Healthy = true
		status.Connected = true
		c.lastError = nil
	}

	if c.sqlDB != nil {
		stats := c.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}
	c.health = status
	return status
}

// LastHealth returns the result of the most recent HealthCheck, or nil.
func (c *Connection) LastHealth() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

func (c *Connection) Stats() *DBStats {
	sqlDB := c.SQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// Close releases the pool. Closing twice is a no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.sqlDB = nil
	c.connected = false
	c.closed = true
	if err != nil {
		c.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	c.logger.Info("Database connection closed")
	return nil
}
