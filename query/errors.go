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
	"database/sql"
	"errors"
)

var (
	// ErrNoRows is returned by GetFirst when the statement matched nothing.
	// It is sql.ErrNoRows so existing errors.Is checks keep working.
	ErrNoRows = sql.ErrNoRows

	ErrNoStatement      = errors.New("no statement started")
	ErrWrongStatement   = errors.New("clause not supported by the current statement")
	ErrNoValues         = errors.New("statement has no values to write")
	ErrUnboundParameter = errors.New("unbound parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnknownType      = errors.New("unknown parameter type")
	ErrNoExecutor       = errors.New("builder has no executor")
)
