package calls

import "errors"

var (
	ErrInvalidState         = errors.New("invalid call state")
	ErrInvalidInput         = errors.New("invalid call input")
	ErrDuplicateCall        = errors.New("patient already has a call today")
	ErrTransitionNotAllowed = errors.New("call state transition not allowed")
	ErrNotPending           = errors.New("call is not pending")
)
