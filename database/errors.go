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
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

var (
	ErrNotConnected     = errors.New("database not connected")
	ErrNotInitialized   = errors.New("database not initialized")
	ErrUnsupportedType  = errors.New("unsupported database type")
	ErrEmptyConfig      = errors.New("database configuration cannot be empty")
	ErrConnectionClosed = errors.New("database connection closed")
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoIndexErr:                  "no_index",
	NoColumnErr:                 "no_column",
	ExistIndexErr:               "exist_index",
	ExistColumnErr:              "exist_column",
	NoTableErr:                  "no_table",
	ExistTableErr:               "exist_table",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_constraint_violation",
	DataTruncatedErr:            "data_truncated",
	InvalidTypeCastErr:          "invalid_type_cast",
}

func (e SQLError) String() string {
	if name, ok := sqlErrorNames[e]; ok {
		return name
	}
	return sqlErrorNames[UnknownErr]
}

var mysqlErrorNumbers = map[uint16]SQLError{
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
}

var postgresStates = map[string]SQLError{
	"42703": NoColumnErr,
	"42704": NoIndexErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"42701": ExistColumnErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
	"22P02": InvalidTypeCastErr,
}

// messagePatterns covers drivers without typed errors (sqlite) and errors
// that lost their type while being wrapped as text. Every substring of an
// entry must match. The order matters: more specific entries come first.
var messagePatterns = []struct {
	parts []string
	kind  SQLError
}{
	{[]string{"no such column"}, NoColumnErr},
	{[]string{"undefined column"}, NoColumnErr},
	{[]string{"no such index"}, NoIndexErr},
	{[]string{"index", "does not exist"}, NoIndexErr},
	{[]string{"no such table"}, NoTableErr},
	{[]string{"undefined table"}, NoTableErr},
	{[]string{"index", "already exists"}, ExistIndexErr},
	{[]string{"duplicate column"}, ExistColumnErr},
	{[]string{"table", "already exists"}, ExistTableErr},
	{[]string{"relation", "already exists"}, ExistTableErr},
	{[]string{"unique constraint failed"}, DuplicateKeyErr},
	{[]string{"duplicate key value"}, DuplicateKeyErr},
	{[]string{"not null constraint failed"}, NotNullViolationErr},
	{[]string{"not-null constraint"}, NotNullViolationErr},
	{[]string{"foreign key constraint failed"}, ForeignKeyViolationErr},
	{[]string{"foreign key violation"}, ForeignKeyViolationErr},
	{[]string{"check constraint"}, CheckConstraintViolationErr},
	{[]string{"string data right truncation"}, DataTruncatedErr},
	{[]string{"data truncated"}, DataTruncatedErr},
	{[]string{"datatype mismatch"}, InvalidTypeCastErr},
}

// ClassifyError maps a driver error onto an SQLError kind.
func ClassifyError(err error) SQLError {
	_, kind := IsSqlError(err)
	return kind
}

// IsSqlError reports whether err is recognisably a database error and which
// kind it is.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrorNumbers[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := postgresStates[string(pqErr.Code)]; ok {
			return true, kind
		}
		return true, UnknownErr
	}

	s := strings.ToLower(err.Error())
	for _, p := range messagePatterns {
		if containsAll(s, p.parts) {
			return true, p.kind
		}
	}
	if strings.Contains(s, "sqlstate ") {
		for state, kind := range postgresStates {
			if strings.Contains(s, "sqlstate "+strings.ToLower(state)) {
				return true, kind
			}
		}
	}
	return false, UnknownErr
}

// IsDuplicateKey is shorthand for the most common check after an insert.
func IsDuplicateKey(err error) bool {
	return ClassifyError(err) == DuplicateKeyErr
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
