// Package todo holds the todo model, the Repository contract implemented by
// the storage packages, and the Service that applies ownership-or-admin
// access control before every read or mutation of a single record.
package todo
