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
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/alex-unruh/repository/query"
	"gopkg.in/yaml.v3"
)

// Schema maps a table name to its declared column types. It is read from YAML
// documents shaped like:
//
//	users:
//	  id: integer
//	  name: string
//	  settings: json
type Schema map[string]query.Types

// Table returns the column types of table, or nil.
func (s Schema) Table(table string) query.Types {
	if s == nil {
		return nil
	}
	return s[table]
}

// Tables returns the declared table names in sorted order.
func (s Schema) Tables() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadSchema reads a schema file.
func LoadSchema(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return ReadSchema(f)
}

// ReadSchema decodes a YAML schema. Type names accept the spellings
// understood by query.ParseParamType. An empty document yields an empty
// schema.
func ReadSchema(r io.Reader) (Schema, error) {
	var raw map[string]map[string]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	schema := make(Schema, len(raw))
	for table, columns := range raw {
		types := make(query.Types, len(columns))
		for column, name := range columns {
			t, err := query.ParseParamType(name)
			if err != nil {
				return nil, fmt.Errorf("schema %s.%s: %w", table, column, err)
			}
			types[column] = t
		}
		schema[table] = types
	}
	return schema, nil
}
