// Package history persists one row per launcher run in a SQLite database so
// operators can see when the pipeline last ran, against which folder, and how
// it ended.
//
// The schema is embedded and versioned; a database written by an incompatible
// version is rejected rather than migrated.
package history
