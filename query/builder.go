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

package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/alex-unruh/repository/database"
	"github.com/alex-unruh/repository/utils"
)

// Executor runs rendered statements. *bun.DB, bun.Tx, *sql.DB and *sql.Tx all
// satisfy it. Bun interpolates "?" arguments for its dialect, which is why the
// default placeholder format is squirrel.Question.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type statementKind int

const (
	noStatement statementKind = iota
	selectStatement
	insertStatement
	updateStatement
	deleteStatement
)

func (k statementKind) String() string {
	switch k {
	case selectStatement:
		return "SELECT"
	case insertStatement:
		return "INSERT"
	case updateStatement:
		return "UPDATE"
	case deleteStatement:
		return "DELETE"
	default:
		return "none"
	}
}

// Option configures a Builder.
type Option func(*Builder)

// WithPlaceholderFormat switches the rendered placeholders, e.g. to
// squirrel.Dollar when the executor is a plain *sql.DB on postgres.
func WithPlaceholderFormat(f squirrel.PlaceholderFormat) Option {
	return func(b *Builder) {
		if f != nil {
			b.sb = b.sb.PlaceholderFormat(f)
		}
	}
}

// WithTypes seeds the type map.
func WithTypes(t Types) Option {
	return func(b *Builder) {
		for k, v := range t {
			b.types[k] = v
		}
	}
}

func WithLogger(l database.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder is a single-table statement builder with a parameter bag and a
// type map. It is not safe for concurrent use.
//
// The parameter bag and the type map persist across statements started on the
// same Builder; call Reset to clear the bag.
type Builder struct {
	exec   Executor
	sb     squirrel.StatementBuilderType
	table  string
	alias  string
	types  Types
	params map[string]interface{}
	logger database.Logger

	kind    statementKind
	sel     squirrel.SelectBuilder
	ins     squirrel.InsertBuilder
	upd     squirrel.UpdateBuilder
	del     squirrel.DeleteBuilder
	columns []string
	values  []interface{}
	setCols map[string]bool
	err     error
}

// New returns a Builder for table. alias may be empty.
func New(exec Executor, table, alias string, opts ...Option) *Builder {
	b := &Builder{
		exec:   exec,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		table:  table,
		alias:  alias,
		types:  Types{},
		params: map[string]interface{}{},
		logger: database.GetLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Table() string { return b.table }

func (b *Builder) Alias() string { return b.alias }

func (b *Builder) from() string {
	if b.alias == "" {
		return b.table
	}
	return b.table + " AS " + b.alias
}

func (b *Builder) start(kind statementKind) {
	b.kind = kind
	b.columns = nil
	b.values = nil
	b.setCols = map[string]bool{}
	b.err = nil
}

// fail records the first clause error; ToSQL and the executing helpers
// return it.
func (b *Builder) fail(err error, clause string) *Builder {
	if b.err == nil {
		if b.kind == noStatement {
			b.err = fmt.Errorf("%w: %s", ErrNoStatement, clause)
		} else {
			b.err = fmt.Errorf("%w: %s on %s", err, clause, b.kind)
		}
	}
	return b
}

// Select starts a SELECT from the table. No columns means "*".
func (b *Builder) Select(columns ...string) *Builder {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	b.start(selectStatement)
	b.sel = b.sb.Select(columns...).From(b.from())
	return b
}

// Insert starts an INSERT into the table. The alias is not used.
func (b *Builder) Insert() *Builder {
	b.start(insertStatement)
	b.ins = b.sb.Insert(b.table)
	return b
}

func (b *Builder) Update() *Builder {
	b.start(updateStatement)
	b.upd = b.sb.Update(b.from())
	return b
}

func (b *Builder) Delete() *Builder {
	b.start(deleteStatement)
	b.del = b.sb.Delete(b.from())
	return b
}

// Columns appends select columns.
func (b *Builder) Columns(columns ...string) *Builder {
	if b.kind != selectStatement {
		return b.fail(ErrWrongStatement, "COLUMNS")
	}
	b.sel = b.sel.Columns(columns...)
	return b
}

func (b *Builder) Distinct() *Builder {
	if b.kind != selectStatement {
		return b.fail(ErrWrongStatement, "DISTINCT")
	}
	b.sel = b.sel.Distinct()
	return b
}

// Where adds a WHERE part. pred follows squirrel: a string with positional
// "?" args, a squirrel.Sqlizer (Eq, Expr, And, ...) or a map.
func (b *Builder) Where(pred interface{}, args ...interface{}) *Builder {
	switch b.kind {
	case selectStatement:
		b.sel = b.sel.Where(pred, args...)
	case updateStatement:
		b.upd = b.upd.Where(pred, args...)
	case deleteStatement:
		b.del = b.del.Where(pred, args...)
	default:
		return b.fail(ErrWrongStatement, "WHERE")
	}
	return b
}

// WhereEq adds "column = :where_column" and binds value under that key. A nil
// value renders "column IS NULL" and binds nothing.
func (b *Builder) WhereEq(column string, value interface{}) *Builder {
	if value == nil {
		return b.Where(column + " IS NULL")
	}
	key := b.uniqueKey("where_" + bindName(column))
	b.params[key] = value
	return b.Where(squirrel.Expr(column+" = ?", paramRef{b: b, key: key, column: column}))
}

// WhereIn adds "column IN (...)" with positional, untyped values.
func (b *Builder) WhereIn(column string, values ...interface{}) *Builder {
	return b.Where(squirrel.Eq{column: values})
}

func (b *Builder) Join(join string, rest ...interface{}) *Builder {
	if b.kind != selectStatement {
		return b.fail(ErrWrongStatement, "JOIN")
	}
	b.sel = b.sel.Join(join, rest...)
	return b
}

func (b *Builder) LeftJoin(join string, rest ...interface{}) *Builder {
	if b.kind != selectStatement {
		return b.fail(ErrWrongStatement, "LEFT JOIN")
	}
	b.sel = b.sel.LeftJoin(join, rest...)
	return b
}

func (b *Builder) GroupBy(groupBys ...string) *Builder {
	if b.kind != selectStatement {
		return b.fail(ErrWrongStatement, "GROUP BY")
	}
	b.sel = b.sel.GroupBy(groupBys...)
	return b
}

func (b *Builder) Having(pred interface{}, rest ...interface{}) *Builder {
	if b.kind != selectStatement {
		return b.fail(ErrWrongStatement, "HAVING")
	}
	b.sel = b.sel.Having(pred, rest...)
	return b
}

func (b *Builder) OrderBy(orderBys ...string) *Builder {
	switch b.kind {
	case selectStatement:
		b.sel = b.sel.OrderBy(orderBys...)
	case updateStatement:
		b.upd = b.upd.OrderBy(orderBys...)
	case deleteStatement:
		b.del = b.del.OrderBy(orderBys...)
	default:
		return b.fail(ErrWrongStatement, "ORDER BY")
	}
	return b
}

func (b *Builder) Limit(limit uint64) *Builder {
	switch b.kind {
	case selectStatement:
		b.sel = b.sel.Limit(limit)
	case updateStatement:
		b.upd = b.upd.Limit(limit)
	case deleteStatement:
		b.del = b.del.Limit(limit)
	default:
		return b.fail(ErrWrongStatement, "LIMIT")
	}
	return b
}

func (b *Builder) Offset(offset uint64) *Builder {
	switch b.kind {
	case selectStatement:
		b.sel = b.sel.Offset(offset)
	case updateStatement:
		b.upd = b.upd.Offset(offset)
	case deleteStatement:
		b.del = b.del.Offset(offset)
	default:
		return b.fail(ErrWrongStatement, "OFFSET")
	}
	return b
}

// Suffix appends raw SQL, e.g. "RETURNING id".
func (b *Builder) Suffix(sql string, args ...interface{}) *Builder {
	switch b.kind {
	case selectStatement:
		b.sel = b.sel.Suffix(sql, args...)
	case insertStatement:
		b.ins = b.ins.Suffix(sql, args...)
	case updateStatement:
		b.upd = b.upd.Suffix(sql, args...)
	case deleteStatement:
		b.del = b.del.Suffix(sql, args...)
	default:
		return b.fail(ErrWrongStatement, "SUFFIX")
	}
	return b
}

// Param returns the placeholder for a named bind parameter. It renders "?"
// and takes its value from the parameter bag when the statement is rendered,
// so the value may be set before or after the placeholder is used.
func (b *Builder) Param(key string) squirrel.Sqlizer {
	return paramRef{b: b, key: key, column: key}
}

// SetParameter stores one bind parameter and, optionally, its type.
func (b *Builder) SetParameter(key string, value interface{}, typ ...ParamType) *Builder {
	b.params[key] = value
	if len(typ) > 0 {
		b.types[key] = typ[0]
	}
	return b
}

// SetParameters stores several untyped bind parameters.
func (b *Builder) SetParameters(params map[string]interface{}) *Builder {
	for k, v := range params {
		b.params[k] = v
	}
	return b
}

// AddValues adds one INSERT column per key with a placeholder bound to the
// key's value. Keys are applied in sorted order. Adding a key twice replaces
// its value without repeating the column.
func (b *Builder) AddValues(values map[string]interface{}) *Builder {
	if b.kind != insertStatement {
		return b.fail(ErrWrongStatement, "VALUES")
	}
	for _, key := range sortedKeys(values) {
		if !containsString(b.columns, key) {
			b.columns = append(b.columns, key)
			b.values = append(b.values, b.Param(key))
		}
		b.params[key] = values[key]
	}
	return b
}

// SetValues adds one "key = placeholder" assignment per key to an UPDATE.
// Keys are applied in sorted order; repeating a key replaces its value.
func (b *Builder) SetValues(values map[string]interface{}) *Builder {
	if b.kind != updateStatement {
		return b.fail(ErrWrongStatement, "SET")
	}
	for _, key := range sortedKeys(values) {
		if !b.setCols[key] {
			b.upd = b.upd.Set(key, b.Param(key))
			b.setCols[key] = true
		}
		b.params[key] = values[key]
	}
	return b
}

// Value adds an INSERT column with a positional value or a squirrel.Sqlizer
// such as squirrel.Expr("CURRENT_TIMESTAMP"). It bypasses the parameter bag.
func (b *Builder) Value(column string, value interface{}) *Builder {
	if b.kind != insertStatement {
		return b.fail(ErrWrongStatement, "VALUES")
	}
	if !containsString(b.columns, column) {
		b.columns = append(b.columns, column)
		b.values = append(b.values, value)
	}
	return b
}

// Set adds an UPDATE assignment with a positional value or a Sqlizer. It
// bypasses the parameter bag.
func (b *Builder) Set(column string, value interface{}) *Builder {
	if b.kind != updateStatement {
		return b.fail(ErrWrongStatement, "SET")
	}
	if !b.setCols[column] {
		b.upd = b.upd.Set(column, value)
		b.setCols[column] = true
	}
	return b
}

// SetTypes merges declared parameter types into the type map.
func (b *Builder) SetTypes(types map[string]ParamType) *Builder {
	for k, v := range types {
		b.types[k] = v
	}
	return b
}

// Params returns a copy of the parameter bag.
func (b *Builder) Params() map[string]interface{} {
	out := make(map[string]interface{}, len(b.params))
	for k, v := range b.params {
		out[k] = v
	}
	return out
}

// Types returns a copy of the type map.
func (b *Builder) Types() Types {
	out := make(Types, len(b.types))
	for k, v := range b.types {
		out[k] = v
	}
	return out
}

// Err returns the first clause error recorded so far.
func (b *Builder) Err() error {
	return b.err
}

// Reset clears the parameter bag and the current statement. The type map is
// kept.
func (b *Builder) Reset() *Builder {
	b.params = map[string]interface{}{}
	b.start(noStatement)
	return b
}

// ToSQL renders the current statement, resolving every placeholder from the
// parameter bag.
func (b *Builder) ToSQL() (string, []interface{}, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	switch b.kind {
	case selectStatement:
		return b.sel.ToSql()
	case insertStatement:
		if len(b.columns) == 0 {
			return "", nil, fmt.Errorf("%w: INSERT into %s", ErrNoValues, b.table)
		}
		return b.ins.Columns(b.columns...).Values(b.values...).ToSql()
	case updateStatement:
		if len(b.setCols) == 0 {
			return "", nil, fmt.Errorf("%w: UPDATE %s", ErrNoValues, b.table)
		}
		return b.upd.ToSql()
	case deleteStatement:
		return b.del.ToSql()
	default:
		return "", nil, ErrNoStatement
	}
}

// Execute renders the statement and runs it with the accumulated parameters.
// The parameter bag is left as is.
func (b *Builder) Execute(ctx context.Context) (sql.Result, error) {
	if b.exec == nil {
		return nil, ErrNoExecutor
	}
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := b.exec.ExecContext(ctx, query, args...)
	b.logger.Debug("Executed statement", "table", b.table, "sql", query, "args", len(args), "duration", utils.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", b.kind, b.table, err)
	}
	return res, nil
}

// Get runs the SELECT and returns every row.
func (b *Builder) Get(ctx context.Context) ([]Row, error) {
	if b.kind != selectStatement {
		if b.err != nil {
			return nil, b.err
		}
		return nil, fmt.Errorf("%w: Get on %s", ErrWrongStatement, b.kind)
	}
	return b.query(ctx)
}

// GetFirst runs the SELECT limited to one row. It returns ErrNoRows when
// nothing matched.
func (b *Builder) GetFirst(ctx context.Context) (Row, error) {
	if b.kind != selectStatement {
		if b.err != nil {
			return nil, b.err
		}
		return nil, fmt.Errorf("%w: GetFirst on %s", ErrWrongStatement, b.kind)
	}
	saved := b.sel
	b.sel = b.sel.Limit(1)
	rows, err := b.query(ctx)
	b.sel = saved
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

func (b *Builder) query(ctx context.Context) ([]Row, error) {
	if b.exec == nil {
		return nil, ErrNoExecutor
	}
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := b.exec.QueryContext(ctx, query, args...)
	if err != nil {
		b.logger.Debug("Query failed", "table", b.table, "sql", query, "error", err)
		return nil, fmt.Errorf("%s %s failed: %w", b.kind, b.table, err)
	}
	result, err := scanRows(rows)
	b.logger.Debug("Executed query", "table", b.table, "sql", query, "args", len(args), "rows", len(result), "duration", utils.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// bound resolves a bag entry, applying the declared type of key or column.
func (b *Builder) bound(key, column string) (interface{}, error) {
	v, ok := b.params[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnboundParameter, key)
	}
	t, ok := b.typeOf(key, column)
	if !ok {
		return v, nil
	}
	converted, err := t.Convert(v)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", key, err)
	}
	return converted, nil
}

func (b *Builder) typeOf(key, column string) (ParamType, bool) {
	if t, ok := b.types[key]; ok {
		return t, true
	}
	if t, ok := b.types[column]; ok {
		return t, true
	}
	if i := strings.LastIndexByte(column, '.'); i >= 0 {
		if t, ok := b.types[column[i+1:]]; ok {
			return t, true
		}
	}
	return "", false
}

func (b *Builder) uniqueKey(base string) string {
	if _, taken := b.params[base]; !taken {
		return base
	}
	for i := 2; ; i++ {
		key := base + "_" + strconv.Itoa(i)
		if _, taken := b.params[key]; !taken {
			return key
		}
	}
}

// paramRef is the Sqlizer behind Param and WhereEq.
type paramRef struct {
	b      *Builder
	key    string
	column string
}

func (p paramRef) ToSql() (string, []interface{}, error) {
	v, err := p.b.bound(p.key, p.column)
	if err != nil {
		return "", nil, err
	}
	return "?", []interface{}{v}, nil
}

// bindName turns "u.created_at" into "u_created_at".
func bindName(column string) string {
	var sb strings.Builder
	for _, r := range column {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
