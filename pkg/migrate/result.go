package migrate

import "github.com/hashicorp/go-multierror"

// TableResult : outcome of one table's pipeline
type TableResult struct {
	TableName     string
	ListName      string
	ListCreated   bool
	RowsAttempted int
	RowsLoaded    int
	RowsRejected  int
	// BatchErrors : last error of every batch that exhausted its retries
	BatchErrors []error
	// Err : the table fatal error if the pipeline stopped early
	Err error
}

// Success : the list was created and every batch made it after retries.
// Dropped rows do not fail the table on their own.
func (r *TableResult) Success() bool {
	return r.Err == nil && r.ListCreated && len(r.BatchErrors) == 0
}

// Result : aggregate over every table attempted in one run
type Result struct {
	RunID  string
	Tables []TableResult
}

// Success : conjunction of all table level successes
func (r *Result) Success() bool {
	for i := range r.Tables {
		if !r.Tables[i].Success() {
			return false
		}
	}
	return true
}

// Err : every table failure folded into one error, nil when the run was
// fully clean
func (r *Result) Err() error {
	var agg error
	for i := range r.Tables {
		t := &r.Tables[i]
		if t.Err != nil {
			agg = multierror.Append(agg, &TableError{Table: t.TableName, Err: t.Err})
		}
		for _, be := range t.BatchErrors {
			agg = multierror.Append(agg, &TableError{Table: t.TableName, Err: be})
		}
	}
	return agg
}

// RowsLoaded : total rows that landed in the destination across tables
func (r *Result) RowsLoaded() int {
	var n int
	for i := range r.Tables {
		n += r.Tables[i].RowsLoaded
	}
	return n
}

// TableError : an error tagged with the table it belongs to
type TableError struct {
	Table string
	Err   error
}

func (e *TableError) Error() string {
	return e.Table + " : " + e.Err.Error()
}

func (e *TableError) Unwrap() error {
	return e.Err
}
