// Package source loads rule catalogs into rule sets.
//
// Two sources are provided:
//
//   - FileSource loads YAML catalogs from a file or directory.
//   - MemorySource wraps an in-memory rule list (useful for tests and
//     embedded catalogs).
//
// Watcher layers hot reload on top of FileSource using fsnotify with a
// quiet-period debounce, so a running engine can pick up catalog edits
// without a restart.
package source
