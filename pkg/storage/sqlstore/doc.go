// Package sqlstore implements the identity store and todo repository on
// database/sql. PostgreSQL (lib/pq) and SQLite (mattn/go-sqlite3) share one
// set of queries written with $N placeholders; Rebind adapts them for
// SQLite. Schema migrations are applied by Open.
//
// For PostgreSQL, read replicas may be configured. Todo lists are read from
// a replica chosen round-robin; everything else uses the primary so a login
// right after registration sees the new identity.
package sqlstore
