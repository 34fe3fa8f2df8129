package database

// Statement is a parameterized SQL statement ready for execution. User
// supplied values only ever travel in Args.
type Statement struct {
	SQL  string
	Args []any
	// Returning is set when executing the statement yields the generated key
	// as a one-column result row.
	Returning bool
}
