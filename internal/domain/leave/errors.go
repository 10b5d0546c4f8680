package leave

import "errors"

var (
	ErrValidation          = errors.New("invalid leave request")
	ErrPolicyNotFound      = errors.New("leave policy not found")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrOverlapConflict     = errors.New("overlapping leave request")
	ErrNoticeViolation     = errors.New("notice period not met")
	ErrNotFound            = errors.New("leave request not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("invalid state transition")
)
