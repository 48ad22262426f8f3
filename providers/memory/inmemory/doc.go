// Package inmemory provides a concurrency-safe, slice-backed implementation
// of [memory.Provider]. Nothing survives a restart.
package inmemory
