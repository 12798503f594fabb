package repository

import "github.com/jmoiron/sqlx"

// execOr returns exec when set, otherwise the repository's own handle.
func execOr(exec sqlx.ExtContext, db *sqlx.DB) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}

func maxParamsOr(n int) int {
	if n <= 0 {
		return DefaultMaxParams
	}
	return n
}
