// Package types defines the configuration, value variant, and standard
// errors shared by the sqlcfg store, its public API, and the CLI.
//
// A configuration value is a scalar leaf addressed by a dotted path
// ("server.port"). Each leaf is persisted as a single-row table in an
// embedded SQLite file; see package sqlcfg for the hierarchical API.
package types
