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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonObject(t *testing.T) {
	v, err := JsonObject{"a": 1}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	v, err = JsonObject(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	var o JsonObject
	require.NoError(t, o.Scan([]byte(`{"b":"c"}`)))
	assert.Equal(t, "c", o["b"])

	require.NoError(t, o.Scan(nil))
	assert.NotNil(t, o)
	assert.Empty(t, o)

	assert.Error(t, o.Scan(42))
}

func TestJsonArray(t *testing.T) {
	v, err := JsonArray{"x", 2}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["x",2]`, v)

	var a JsonArray
	require.NoError(t, a.Scan(`[1,"two"]`))
	assert.Equal(t, JsonArray{float64(1), "two"}, a)

	require.NoError(t, a.Scan(nil))
	assert.Empty(t, a)
}

func TestMarshalJSONValue(t *testing.T) {
	s, err := MarshalJSONValue(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, s)

	s, err = MarshalJSONValue(`{"ok":true}`)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, s)

	s, err = MarshalJSONValue(json.RawMessage(`[1]`))
	require.NoError(t, err)
	assert.Equal(t, "[1]", s)

	_, err = MarshalJSONValue("{broken")
	assert.Error(t, err)
	_, err = MarshalJSONValue([]byte("nope"))
	assert.Error(t, err)
	_, err = MarshalJSONValue(make(chan int))
	assert.Error(t, err)
}
