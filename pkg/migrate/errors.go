package migrate

import "errors"

// run level fatal errors, everything else folds into the per table results
var (
	// ErrSourceConnect : the source is unreachable, nothing was attempted
	ErrSourceConnect = errors.New("SOURCE_CONNECT_FAILED : could not connect to the source")
	// ErrAuth : the destination rejected our credentials, nothing was
	// attempted against it
	ErrAuth = errors.New("AUTH_FAILED : destination rejected authentication")
)

// table level sentinel, raised when every extracted row failed coercion
var ErrAllRowsRejected = errors.New("every extracted row failed coercion")
