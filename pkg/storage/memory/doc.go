// Package memory provides process-local storage backends. State is lost on
// restart; use it for tests and local development.
package memory
