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
	"math"
	"testing"
	"time"

	"github.com/alex-unruh/repository/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParamType(t *testing.T) {
	cases := map[string]ParamType{
		"integer":   Integer,
		"BIGINT":    Integer,
		" text ":    String,
		"jsonb":     JSON,
		"timestamp": DateTime,
		"bytea":     Binary,
		"uuid":      UUID,
	}
	for name, want := range cases {
		got, err := ParseParamType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseParamType("money")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParamTypeValid(t *testing.T) {
	assert.True(t, Integer.Valid())
	assert.True(t, UUID.Valid())
	assert.False(t, ParamType("bigint").Valid())
	assert.False(t, ParamType("").Valid())
}

func TestConvert(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 7
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name string
		typ  ParamType
		in   interface{}
		want interface{}
	}{
		{"nil stays nil", Integer, nil, nil},
		{"int to string", String, 42, "42"},
		{"time to string", String, ts, "2024-01-02 03:04:05"},
		{"string to integer", Integer, " 42 ", int64(42)},
		{"integral float to integer", Integer, 3.0, int64(3)},
		{"lowest int64 float", Integer, float64(math.MinInt64), int64(math.MinInt64)},
		{"pointer is dereferenced", Integer, &n, int64(7)},
		{"bool to integer", Integer, true, int64(1)},
		{"string to float", Float, "3.5", 3.5},
		{"string to boolean", Boolean, "true", true},
		{"int to boolean", Boolean, 0, false},
		{"map to json", JSON, map[string]interface{}{"a": 1}, `{"a":1}`},
		{"json string kept", JSON, `[1,2]`, `[1,2]`},
		{"time to datetime", DateTime, ts, "2024-01-02 03:04:05"},
		{"rfc3339 to date", Date, "2024-01-02T10:00:00Z", "2024-01-02"},
		{"time to time", Time, ts, "03:04:05"},
		{"string to binary", Binary, "ab", []byte("ab")},
		{"uuid string is canonical", UUID, "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", id.String()},
		{"uuid bytes", UUID, id[:], id.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.typ.Convert(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertValuerPassesThrough(t *testing.T) {
	obj := types.JsonObject{"a": "b"}
	got, err := JSON.Convert(obj)
	require.NoError(t, err)
	assert.Equal(t, obj, got)

	id := uuid.New()
	got, err = String.Convert(id)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		typ ParamType
		in  interface{}
	}{
		{Integer, 4.5},
		{Integer, float64(math.MaxInt64)},
		{Integer, -math.Pow(2, 64)},
		{Integer, uint64(math.MaxUint64)},
		{Integer, "abc"},
		{Float, struct{}{}},
		{Boolean, "maybe"},
		{JSON, "{not json"},
		{Date, "yesterday"},
		{Binary, 12},
		{UUID, "not-a-uuid"},
	}
	for _, tt := range tests {
		_, err := tt.typ.Convert(tt.in)
		assert.ErrorIs(t, err, ErrInvalidParameter, "%s %v", tt.typ, tt.in)
	}

	_, err := ParamType("money").Convert(1)
	assert.ErrorIs(t, err, ErrUnknownType)
}
