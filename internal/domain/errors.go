package domain

import "fmt"

// ErrorKind classifies a ledger failure. Kinds are stable and safe to expose to clients.
type ErrorKind string

const (
	KindNotMember            ErrorKind = "NOT_MEMBER"
	KindRole                 ErrorKind = "ROLE_REQUIRED"
	KindTripNotFound         ErrorKind = "TRIP_NOT_FOUND"
	KindExpenseNotFound      ErrorKind = "EXPENSE_NOT_FOUND"
	KindInvalidSplitMode     ErrorKind = "INVALID_SPLIT_MODE"
	KindEmptyParticipants    ErrorKind = "EMPTY_PARTICIPANTS"
	KindParticipantNotMember ErrorKind = "PARTICIPANT_NOT_MEMBER"
	KindSplitMismatch        ErrorKind = "SPLIT_MISMATCH"
	KindSplitSumMismatch     ErrorKind = "SPLIT_SUM_MISMATCH"
	KindMissingRate          ErrorKind = "MISSING_RATE"
	KindEditForbidden        ErrorKind = "EDIT_FORBIDDEN"
	KindDeleteForbidden      ErrorKind = "DELETE_FORBIDDEN"

	KindInvalidAmount     ErrorKind = "INVALID_AMOUNT"
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindInviteNotFound    ErrorKind = "INVITE_NOT_FOUND"
	KindInviteInactive    ErrorKind = "INVITE_INACTIVE"
	KindInviteExpired     ErrorKind = "INVITE_EXPIRED"
	KindOwnerNotRemovable ErrorKind = "OWNER_NOT_REMOVABLE"
)

// Error is a terminal validation or authorization failure raised by the ledger.
// Field names the offending input (JSON field name or "field.key"), when there is one.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Is matches any *Error of the same kind, so callers can use the sentinels below
// with errors.Is regardless of field or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotMember            = &Error{Kind: KindNotMember}
	ErrRole                 = &Error{Kind: KindRole}
	ErrTripNotFound         = &Error{Kind: KindTripNotFound}
	ErrExpenseNotFound      = &Error{Kind: KindExpenseNotFound}
	ErrInvalidSplitMode     = &Error{Kind: KindInvalidSplitMode}
	ErrEmptyParticipants    = &Error{Kind: KindEmptyParticipants}
	ErrParticipantNotMember = &Error{Kind: KindParticipantNotMember}
	ErrSplitMismatch        = &Error{Kind: KindSplitMismatch}
	ErrSplitSumMismatch     = &Error{Kind: KindSplitSumMismatch}
	ErrMissingRate          = &Error{Kind: KindMissingRate}
	ErrEditForbidden        = &Error{Kind: KindEditForbidden}
	ErrDeleteForbidden      = &Error{Kind: KindDeleteForbidden}
	ErrInvalidAmount        = &Error{Kind: KindInvalidAmount}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrInviteNotFound       = &Error{Kind: KindInviteNotFound}
	ErrInviteInactive       = &Error{Kind: KindInviteInactive}
	ErrInviteExpired        = &Error{Kind: KindInviteExpired}
	ErrOwnerNotRemovable    = &Error{Kind: KindOwnerNotRemovable}
)

func validationError(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}
