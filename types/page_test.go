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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestDefaults(t *testing.T) {
	p := NewPageRequest(0, 0, nil, nil)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, DefaultPageSize, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())
	assert.Nil(t, p.GetFilter())
	assert.Empty(t, p.GetOrders())
}

func TestPageRequestOffset(t *testing.T) {
	p := NewPageRequestWithOrders(3, 25, "id DESC")
	assert.Equal(t, 50, p.GetOffset())
	assert.Equal(t, []string{"id DESC"}, p.GetOrders())

	f := NewQueryFilter("age > ?", 18)
	p = NewPageRequestWithFilter(2, 5, f)
	assert.Equal(t, 5, p.GetOffset())
	assert.Same(t, f, p.GetFilter())
}

func TestQueryFilterIsEmpty(t *testing.T) {
	var f *QueryFilter
	assert.True(t, f.IsEmpty())
	assert.True(t, NewQueryFilter("").IsEmpty())
	assert.False(t, NewQueryFilter("id = ?", 1).IsEmpty())
}

func TestPagination(t *testing.T) {
	p := NewPagination[int](1, 10)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 0, p.TotalPages())
	assert.False(t, p.HasNext())

	p.Total = 21
	assert.Equal(t, 3, p.TotalPages())
	assert.True(t, p.HasNext())

	p.Page = 3
	assert.False(t, p.HasNext())
}
