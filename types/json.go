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

package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JsonObject is a convenience type for JSON columns mapped to objects.
type JsonObject map[string]interface{}

// JsonArray is a convenience type for JSON columns mapped to arrays.
type JsonArray []interface{}

// Value implements driver.Valuer. The encoded document is returned as a
// string so drivers without a []byte JSON path store text.
func (j JsonObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL yields an empty object.
func (j *JsonObject) Scan(value interface{}) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	if raw == nil {
		*j = make(JsonObject)
		return nil
	}
	return json.Unmarshal(raw, j)
}

func (j JsonArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL yields an empty array.
func (j *JsonArray) Scan(value interface{}) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	if raw == nil {
		*j = make(JsonArray, 0)
		return nil
	}
	return json.Unmarshal(raw, j)
}

// MarshalJSONValue encodes v as a JSON document string. Strings and byte
// slices are taken to be encoded already and are only checked for validity.
func MarshalJSONValue(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		if !json.Valid([]byte(t)) {
			return "", fmt.Errorf("invalid JSON document %q", t)
		}
		return t, nil
	case []byte:
		if !json.Valid(t) {
			return "", fmt.Errorf("invalid JSON document %q", t)
		}
		return string(t), nil
	case json.RawMessage:
		return string(t), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T into a JSON column", value)
	}
}
