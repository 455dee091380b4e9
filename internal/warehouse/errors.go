package warehouse

import "fmt"

// ConnectionError indicates missing credentials or an unreachable warehouse.
// It is fatal for the session.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Driver != "" {
		return fmt.Sprintf("could not connect to %s warehouse: %v", e.Driver, e.Err)
	}
	return fmt.Sprintf("could not connect to warehouse: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError indicates the data query failed (bad SQL, missing table or
// column). It is fatal for the current data load.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("error loading data: %v", e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }
