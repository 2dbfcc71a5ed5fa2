package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperation is returned when an endpoint/action pair from the
// configuration has no matching Operation variant.
var ErrUnsupportedOperation = errors.New("unsupported endpoint/action combination")

// ConfigError reports invalid or missing configuration (empty endpoint list,
// missing input columns). Always fatal.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// AuthError reports unusable credentials: an error body from the OAuth token
// endpoint, or an HTTP 401 from any API call. Always fatal regardless of the
// failure policy; re-authorization is required out-of-band.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

// NewAuthError creates an AuthError with a formatted message.
func NewAuthError(format string, args ...any) *AuthError {
	return &AuthError{Msg: fmt.Sprintf(format, args...)}
}

// ResponseParseError reports an API response body that is neither JSON nor
// recognizable XML. Fatal under strict policy, downgraded to a synthetic
// fault under lenient policy.
type ResponseParseError struct {
	Msg  string
	Body string
}

func (e *ResponseParseError) Error() string { return e.Msg }

// RowDataError reports malformed input data (for example a non-numeric
// Amount). Fatal under both policies since it indicates a broken input
// table, not a remote rejection.
type RowDataError struct {
	GroupID string
	Msg     string
}

func (e *RowDataError) Error() string {
	return fmt.Sprintf("group %s: %s", e.GroupID, e.Msg)
}

// SubmissionError aborts a strict-policy run on the first row-level
// rejection, identifying the failing group and the fault payload.
type SubmissionError struct {
	GroupID string
	Fault   *Fault
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission rejected for group %s: %s", e.GroupID, e.Fault.Summary())
}

// Process exit codes.
const (
	ExitOK       = 0
	ExitUser     = 1
	ExitInternal = 2
)

// ExitCode maps an error to the process exit code: configuration, credential
// and input-data problems are user errors, everything else is internal.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		configErr *ConfigError
		authErr   *AuthError
		rowErr    *RowDataError
	)
	if errors.As(err, &configErr) || errors.As(err, &authErr) || errors.As(err, &rowErr) ||
		errors.Is(err, ErrUnsupportedOperation) {
		return ExitUser
	}

	return ExitInternal
}
