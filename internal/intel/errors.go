package intel

import "fmt"

// Code identifies a query-boundary failure. The set is closed; callers
// branch on the code, not on message text.
type Code string

const (
	CodeInvalidIPOrASN     Code = "INVALID_IP_OR_ASN"
	CodeASNLookupDisabled  Code = "ASN_LOOKUP_DISABLED"
	CodeInvalidBulkInput   Code = "INVALID_BULK_INPUT"
	CodeNoValidBulkEntries Code = "INVALID_BULK_INPUT_NO_VALID_ENTRIES"
	CodeInvalidBulkSize    Code = "INVALID_BULK_SIZE"
	CodeBulkLimitExceeded  Code = "BULK_LIMIT_EXCEEDED"
	CodeInvalidIP1         Code = "INVALID_IP1"
	CodeInvalidIP2         Code = "INVALID_IP2"
	CodeNoLocationData     Code = "NO_LOCATION_DATA"
	CodeDistanceFailed     Code = "DISTANCE_CALCULATION_FAILED"
	CodeWhoisNotFound      Code = "WHOIS_NOT_FOUND"
	CodeNotLoaded          Code = "NOT_LOADED"
)

// Error is a typed query failure: a stable code plus a human message.
type Error struct {
	Code    Code   `json:"error_code"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the typed error from err, or wraps an unexpected
// failure so no untyped error crosses the query boundary.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Code: "INTERNAL", Message: err.Error()}
}
