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
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/alex-unruh/repository/types"
	"github.com/google/uuid"
)

// ParamType is the declared type of a bind parameter. It decides how the
// value is coerced before it reaches the driver.
type ParamType string

const (
	String   ParamType = "string"
	Integer  ParamType = "integer"
	Float    ParamType = "float"
	Boolean  ParamType = "boolean"
	JSON     ParamType = "json"
	DateTime ParamType = "datetime"
	Date     ParamType = "date"
	Time     ParamType = "time"
	Binary   ParamType = "binary"
	UUID     ParamType = "uuid"
)

// Layouts used when temporal parameters are rendered as text.
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
)

var errUnsupported = errors.New("unsupported type")

// Types maps a bind key (usually a column name) to its declared type.
type Types map[string]ParamType

var typeAliases = map[string]ParamType{
	"string":    String,
	"text":      String,
	"varchar":   String,
	"char":      String,
	"decimal":   String,
	"integer":   Integer,
	"int":       Integer,
	"bigint":    Integer,
	"smallint":  Integer,
	"float":     Float,
	"double":    Float,
	"real":      Float,
	"boolean":   Boolean,
	"bool":      Boolean,
	"json":      JSON,
	"jsonb":     JSON,
	"datetime":  DateTime,
	"timestamp": DateTime,
	"date":      Date,
	"time":      Time,
	"binary":    Binary,
	"blob":      Binary,
	"bytea":     Binary,
	"uuid":      UUID,
	"guid":      UUID,
}

// ParseParamType resolves a declared type name, including common SQL
// spellings such as "bigint" or "jsonb".
func ParseParamType(name string) (ParamType, error) {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Valid reports whether t is one of the declared constants.
func (t ParamType) Valid() bool {
	got, ok := typeAliases[string(t)]
	return ok && got == t
}

// Convert coerces v to the representation t binds with. nil stays nil and
// driver.Valuer values are passed through untouched.
func (t ParamType) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		if _, ok := v.(driver.Valuer); !ok {
			return t.Convert(rv.Elem().Interface())
		}
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}

	var (
		out interface{}
		err error
	)
	switch t {
	case String:
		out, err = toString(v)
	case Integer:
		out, err = toInt64(v)
	case Float:
		out, err = toFloat64(v)
	case Boolean:
		out, err = toBool(v)
	case JSON:
		out, err = types.MarshalJSONValue(v)
	case DateTime:
		out, err = toTemporal(v, DateTimeLayout)
	case Date:
		out, err = toTemporal(v, DateLayout)
	case Time:
		out, err = toTemporal(v, TimeLayout)
	case Binary:
		out, err = toBytes(v)
	case UUID:
		out, err = toUUID(v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s value %v (%T): %v", ErrInvalidParameter, t, v, v, err)
	}
	return out, nil
}

func toString(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case time.Time:
		return t.Format(DateTimeLayout), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return fmt.Sprint(v), nil
	}
	return "", errUnsupported
}

func toInt64(v interface{}) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, errors.New("overflows int64")
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, errors.New("not an integral value")
		}
		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		return strconv.ParseInt(strings.TrimSpace(rv.String()), 10, 64)
	}
	if b, ok := v.([]byte); ok {
		return strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	}
	return 0, errUnsupported
}

func toFloat64(v interface{}) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
	}
	if b, ok := v.([]byte); ok {
		return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	}
	return 0, errUnsupported
}

func toBool(v interface{}) (bool, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.String:
		return strconv.ParseBool(strings.TrimSpace(rv.String()))
	}
	return false, errUnsupported
}

func toTemporal(v interface{}, layout string) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout), nil
	case string:
		parsed, err := parseTime(t, layout)
		if err != nil {
			return "", err
		}
		return parsed.Format(layout), nil
	}
	return "", errUnsupported
}

func parseTime(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, l := range []string{layout, time.RFC3339Nano, DateTimeLayout, DateLayout} {
		t, err := time.Parse(l, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func toBytes(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	}
	return nil, errUnsupported
}

func toUUID(v interface{}) (string, error) {
	// uuid.UUID is a driver.Valuer and never reaches this point.
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String(), nil
	case string:
		id, err := uuid.Parse(t)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	case []byte:
		if len(t) == 16 {
			id, err := uuid.FromBytes(t)
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
		id, err := uuid.ParseBytes(t)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
	return "", errUnsupported
}
