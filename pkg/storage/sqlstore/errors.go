package sqlstore

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// pqUniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique or primary key
// constraint failure from either driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
