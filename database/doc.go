// Package database provides connection configuration, connection lifecycle,
// health checks, query hooks, logging and SQL error classification on top of
// Bun.
package database
