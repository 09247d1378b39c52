// Package storage provides audit event stores.
//
// MemoryStore keeps a bounded in-process trail with oldest-first eviction;
// SQLiteStore persists the trail to disk. Both implement audit.Store and are
// safe for concurrent use.
package storage
