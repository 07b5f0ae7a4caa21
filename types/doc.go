// Package types holds the small value types shared by the repository layer:
// filters, page requests, paginated results and JSON column helpers.
package types
