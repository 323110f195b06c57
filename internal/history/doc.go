// Package history keeps a SQLite ledger of merge runs.
//
// Each run is inserted when it starts and updated when it finishes, so a
// crashed run stays visible as "running". Rows record the input files, row
// counts before and after filtering, and every output written with its size
// and SHA-256 digest.
//
// Schema changes bump schemaVersion in schema.go; the ledger is small, so
// users delete history.db to adopt a new schema.
package history
