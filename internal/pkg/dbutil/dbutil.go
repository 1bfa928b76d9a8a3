package dbutil

import (
	"github.com/jmoiron/sqlx"
)

// ExpandIn expands a query containing an IN (?) clause for a variable
// number of arguments. SQLite keeps the question-mark bindvar.
func ExpandIn(query string, args ...interface{}) (string, []interface{}, error) {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.QUESTION, expanded), expandedArgs, nil
}
