// Package storage defines the persistence surface of the tasklist service
// and its backend configuration.
//
// # Backends
//
//   - memory: mutex-guarded maps, for tests and local development
//   - sqlstore: database/sql over PostgreSQL (lib/pq) or SQLite (mattn/go-sqlite3),
//     with optional read replicas for PostgreSQL
//   - cache: a decorator that caches identity lookups in an in-process LRU
//     and, optionally, in Redis
//
// Every backend implements Store, which hands out an auth.CredentialStore
// and a todo.Repository sharing one connection, plus health checking.
package storage
