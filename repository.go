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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/alex-unruh/repository/database"
	"github.com/alex-unruh/repository/query"
	"github.com/alex-unruh/repository/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

// ErrUnsafeStatement is returned when Modify or Destroy would touch every row.
var ErrUnsafeStatement = errors.New("repository: refusing to run statement without criteria")

// Option configures a Repository.
type Option func(*Repository)

// WithAlias sets the table alias used by SELECT, UPDATE and DELETE.
func WithAlias(alias string) Option {
	return func(r *Repository) { r.alias = alias }
}

// WithTypes merges declared column types.
func WithTypes(t query.Types) Option {
	return func(r *Repository) {
		for k, v := range t {
			r.types[k] = v
		}
	}
}

// WithSchema merges the column types declared for the repository's table.
func WithSchema(s Schema) Option {
	return func(r *Repository) {
		for k, v := range s.Table(r.table) {
			r.types[k] = v
		}
	}
}

func WithLogger(l database.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPlaceholderFormat is only needed when the connection does not
// interpolate "?" itself.
func WithPlaceholderFormat(f squirrel.PlaceholderFormat) Option {
	return func(r *Repository) { r.format = f }
}

// Repository is the base for per-table repositories. Embed it and add
// table-specific methods on top of Read, Create, Modify and Destroy.
//
// Every call builds its own query.Builder, so a Repository is safe for
// concurrent use.
type Repository struct {
	mu     sync.Mutex
	db     bun.IDB
	lazy   bool
	table  string
	alias  string
	types  query.Types
	logger database.Logger
	format squirrel.PlaceholderFormat
}

// New returns a Repository for table on db. db may be a *bun.DB or a bun.Tx.
func New(db bun.IDB, table string, opts ...Option) *Repository {
	r := &Repository{
		db:     db,
		table:  table,
		types:  query.Types{},
		logger: database.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns a Repository bound to the global connection. The connection
// is resolved on every call, so it may be created before database.InitDB and
// keeps working when the global connection is replaced.
func Default(table string, opts ...Option) *Repository {
	r := New(nil, table, opts...)
	r.lazy = true
	return r
}

func (r *Repository) Table() string { return r.table }

func (r *Repository) Alias() string { return r.alias }

// Types returns a copy of the declared column types.
func (r *Repository) Types() query.Types {
	out := make(query.Types, len(r.types))
	for k, v := range r.types {
		out[k] = v
	}
	return out
}

// DB returns the bound connection. Default repositories follow the global
// connection, so a database.InitDB after the first call is picked up.
func (r *Repository) DB() (bun.IDB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lazy {
		if db := database.GetDB(); db != nil {
			r.db = db
		} else {
			r.db = nil
		}
	}
	if r.db == nil {
		return nil, database.ErrNotInitialized
	}
	return r.db, nil
}

// Query returns a fresh builder for the table. Without a connection the
// builder can still render SQL; executing it fails with query.ErrNoExecutor.
func (r *Repository) Query() *query.Builder {
	opts := []query.Option{query.WithTypes(r.types), query.WithLogger(r.logger)}
	if r.format != nil {
		opts = append(opts, query.WithPlaceholderFormat(r.format))
	}
	var exec query.Executor
	if db, err := r.DB(); err == nil {
		exec = db
	}
	return query.New(exec, r.table, r.alias, opts...)
}

// WithTx returns a copy of the repository running on tx.
func (r *Repository) WithTx(tx bun.Tx) *Repository {
	return &Repository{
		db:     &tx,
		table:  r.table,
		alias:  r.alias,
		types:  r.Types(),
		logger: r.logger,
		format: r.format,
	}
}

// RunInTx runs fn inside a transaction. The repository passed to fn is bound
// to the transaction; returning an error rolls it back.
func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, repo *Repository) error) error {
	db, err := r.DB()
	if err != nil {
		return err
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, r.WithTx(tx))
	})
}

// Read returns the rows matching filter. A nil or empty filter reads the
// whole table.
func (r *Repository) Read(ctx context.Context, filter *types.QueryFilter, columns ...string) ([]query.Row, error) {
	return withFilter(r.Query().Select(columns...), filter).Get(ctx)
}

// ReadBy returns the rows whose columns equal criteria.
func (r *Repository) ReadBy(ctx context.Context, criteria map[string]interface{}, columns ...string) ([]query.Row, error) {
	return withCriteria(r.Query().Select(columns...), criteria).Get(ctx)
}

// ReadFirst returns the first row matching criteria, or query.ErrNoRows.
func (r *Repository) ReadFirst(ctx context.Context, criteria map[string]interface{}, columns ...string) (query.Row, error) {
	return withCriteria(r.Query().Select(columns...), criteria).GetFirst(ctx)
}

// Create inserts one row built from values.
func (r *Repository) Create(ctx context.Context, values map[string]interface{}) (sql.Result, error) {
	return r.Query().Insert().AddValues(values).Execute(ctx)
}

// Modify updates the rows matching criteria and returns the affected count.
func (r *Repository) Modify(ctx context.Context, values, criteria map[string]interface{}) (int64, error) {
	if len(criteria) == 0 {
		return 0, fmt.Errorf("%w: UPDATE %s", ErrUnsafeStatement, r.table)
	}
	res, err := withCriteria(r.Query().Update().SetValues(values), criteria).Execute(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Destroy deletes the rows matching criteria and returns the affected count.
func (r *Repository) Destroy(ctx context.Context, criteria map[string]interface{}) (int64, error) {
	if len(criteria) == 0 {
		return 0, fmt.Errorf("%w: DELETE FROM %s", ErrUnsafeStatement, r.table)
	}
	res, err := withCriteria(r.Query().Delete(), criteria).Execute(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of rows matching filter.
func (r *Repository) Count(ctx context.Context, filter *types.QueryFilter) (int64, error) {
	row, err := withFilter(r.Query().Select("COUNT(*) AS total"), filter).GetFirst(ctx)
	if err != nil {
		return 0, err
	}
	total, ok := row.Int64("total")
	if !ok {
		return 0, fmt.Errorf("unexpected count value %v (%T)", row["total"], row["total"])
	}
	return total, nil
}

// Page returns one page of rows along with the total row count.
func (r *Repository) Page(ctx context.Context, req *types.PageRequest, columns ...string) (*types.Pagination[query.Row], error) {
	if req == nil {
		req = types.NewPageRequest(1, types.DefaultPageSize, nil, nil)
	}
	pagination := types.NewPagination[query.Row](req.GetPage(), req.GetPageSize())
	total, err := r.Count(ctx, req.GetFilter())
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return pagination, nil
	}
	b := withFilter(r.Query().Select(columns...), req.GetFilter())
	if orders := req.GetOrders(); len(orders) > 0 {
		b.OrderBy(orders...)
	}
	rows, err := b.Limit(uint64(req.GetPageSize())).Offset(uint64(req.GetOffset())).Get(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = int(total)
	pagination.Items = rows
	return pagination, nil
}

// Upsert inserts values or, when a row with the same conflict keys exists,
// updates fields on it. conflictKeys defaults to "id" and fields to every
// value column that is not a conflict key. Dialects without native upsert
// support fall back to an insert followed by an update.
func (r *Repository) Upsert(ctx context.Context, values map[string]interface{}, conflictKeys []string, fields ...string) (sql.Result, error) {
	db, err := r.DB()
	if err != nil {
		return nil, err
	}
	if len(conflictKeys) == 0 {
		conflictKeys = []string{"id"}
	}
	if len(fields) == 0 {
		fields = updatableFields(values, conflictKeys)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no columns to update on conflict", query.ErrNoValues)
	}

	features := db.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		sets := make([]string, 0, len(fields))
		for _, f := range fields {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", f, f))
		}
		suffix := "ON CONFLICT (" + strings.Join(conflictKeys, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
		return r.Query().Insert().AddValues(values).Suffix(suffix).Execute(ctx)
	case features.Has(feature.InsertOnDuplicateKey):
		sets := make([]string, 0, len(fields))
		for _, f := range fields {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", f, f))
		}
		return r.Query().Insert().AddValues(values).Suffix("ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")).Execute(ctx)
	default:
		return r.upsertFallback(ctx, values, conflictKeys, fields)
	}
}

func (r *Repository) upsertFallback(ctx context.Context, values map[string]interface{}, conflictKeys, fields []string) (sql.Result, error) {
	res, err := r.Create(ctx, values)
	if err == nil {
		return res, nil
	}
	criteria := make(map[string]interface{}, len(conflictKeys))
	for _, k := range conflictKeys {
		criteria[k] = values[k]
	}
	update := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		update[f] = values[f]
	}
	res, updateErr := withCriteria(r.Query().Update().SetValues(update), criteria).Execute(ctx)
	if updateErr != nil {
		return nil, fmt.Errorf("upsert into %s failed: insert error: %v, update error: %w", r.table, err, updateErr)
	}
	r.logger.Debug("Upsert fell back to update", "table", r.table, "insert_error", err)
	return res, nil
}

func withFilter(b *query.Builder, filter *types.QueryFilter) *query.Builder {
	if !filter.IsEmpty() {
		b.Where(filter.Schema, filter.Args...)
	}
	return b
}

// withCriteria adds one equality per column in sorted order, each bound as a
// where_<column> parameter.
func withCriteria(b *query.Builder, criteria map[string]interface{}) *query.Builder {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WhereEq(k, criteria[k])
	}
	return b
}

func updatableFields(values map[string]interface{}, conflictKeys []string) []string {
	skip := make(map[string]bool, len(conflictKeys))
	for _, k := range conflictKeys {
		skip[k] = true
	}
	fields := make([]string, 0, len(values))
	for k := range values {
		if !skip[k] {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	return fields
}
