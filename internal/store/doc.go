// Package store provides vault.Store implementations.
//
// Memory keeps records in process and is used by tests and dry runs. SQLite
// persists the same binary layouts to a database file. Both give each WithTx
// call all-or-nothing semantics.
package store
