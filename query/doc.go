// Package query layers parameter bookkeeping over squirrel's statement
// builders.
//
// A Builder targets one table (with an optional alias) and carries a bag of
// named bind parameters and a map of declared parameter types. Helpers such as
// AddValues and SetValues turn a column/value map into one placeholder and one
// bound parameter per column; Execute, Get and GetFirst render the statement,
// resolve every placeholder from the bag, coerce typed parameters and hand the
// result to the executor, usually a *bun.DB or bun.Tx.
//
//	rows, err := query.New(db, "users", "u").
//		Select("u.id", "u.name").
//		WhereEq("u.active", true).
//		OrderBy("u.name").
//		Get(ctx)
package query
