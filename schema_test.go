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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alex-unruh/repository/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaYAML = `
users:
  id: bigint
  name: varchar
  settings: jsonb
orders:
  id: integer
  placed_at: timestamp
`

func TestReadSchema(t *testing.T) {
	s, err := ReadSchema(strings.NewReader(schemaYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"orders", "users"}, s.Tables())
	assert.Equal(t, query.Types{"id": query.Integer, "name": query.String, "settings": query.JSON}, s.Table("users"))
	assert.Equal(t, query.DateTime, s.Table("orders")["placed_at"])
	assert.Nil(t, s.Table("missing"))
}

func TestReadSchemaEmpty(t *testing.T) {
	s, err := ReadSchema(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestReadSchemaUnknownType(t *testing.T) {
	_, err := ReadSchema(strings.NewReader("users:\n  id: money\n"))
	assert.ErrorIs(t, err, query.ErrUnknownType)
	assert.Contains(t, err.Error(), "users.id")
}

func TestReadSchemaMalformed(t *testing.T) {
	_, err := ReadSchema(strings.NewReader("users: [1, 2"))
	assert.Error(t, err)
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schemaYAML), 0o644))

	s, err := LoadSchema(path)
	require.NoError(t, err)

	repo := New(nil, "users", WithSchema(s), WithTypes(query.Types{"age": query.Integer}))
	assert.Equal(t, query.Types{
		"id":       query.Integer,
		"name":     query.String,
		"settings": query.JSON,
		"age":      query.Integer,
	}, repo.Types())

	_, err = LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
