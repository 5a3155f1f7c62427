// Package cache puts a two-level read-through cache in front of an
// auth.CredentialStore: an expiring in-process LRU and an optional shared
// Redis layer. Redis failures are logged and the lookup falls through to the
// wrapped store.
package cache
