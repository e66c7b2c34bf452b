package ledger

import "errors"

var (
	ErrDuplicateTimestamp     = errors.New("a line with this timestamp already exists for this table")
	ErrLineNotFound           = errors.New("order line not found")
	ErrInvalidStateTransition = errors.New("fulfilled lines cannot be cancelled")
	ErrUnknownStatus          = errors.New("unknown order line status")
)
