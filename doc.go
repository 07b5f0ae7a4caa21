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

// Package repository is a thin convenience layer over squirrel and bun for
// table-oriented CRUD code.
//
// A per-table repository embeds *Repository:
//
//	type UserRepository struct {
//		*repository.Repository
//	}
//
//	func NewUserRepository(db bun.IDB) *UserRepository {
//		return &UserRepository{repository.New(db, "users", repository.WithAlias("u"),
//			repository.WithTypes(query.Types{"settings": query.JSON}))}
//	}
//
//	func (r *UserRepository) Active(ctx context.Context) ([]query.Row, error) {
//		return r.Query().Select("u.id", "u.name").WhereEq("u.active", true).Get(ctx)
//	}
//
// Statements that need more than the base operations are written with the
// builder returned by Query; see package query.
package repository
