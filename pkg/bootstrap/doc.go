// Package bootstrap seeds the role registry and the administrator account
// at startup.
package bootstrap
