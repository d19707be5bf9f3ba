// Package store is the persistence bridge between the scan engine and
// whatever is watching it.
//
// The engine writes a handful of JSON values (see the Key constants) and
// observers either poll them with Get or Subscribe to committed changes.
// Three backends share the same contract: MemoryStore for tests and
// one-shot CLI runs, FileStore for a single JSON document on disk, and
// SQLiteStore for a kv table in a SQLite database.
package store
