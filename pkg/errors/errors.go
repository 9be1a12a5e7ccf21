package errors

import "fmt"

// Kind classifies an error the way the rest of the system reasons about
// failures: by what happened, not by which Go type was returned. The set
// is fixed by the error handling design: callers switch on Kind rather
// than matching on message text.
type Kind string

const (
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindMissingEndpoint   Kind = "missing_endpoint"
	KindNotFound          Kind = "not_found"
	KindLagExceeded       Kind = "lag_exceeded"
	KindFanoutDropped     Kind = "fanout_dropped"
	KindParserError       Kind = "parser_error"
	KindBatchRolledBack   Kind = "batch_rolled_back"
	KindCancelled         Kind = "cancelled"
	KindDeadlineExceeded  Kind = "deadline_exceeded"
	KindInternal          Kind = "internal"
)

// AppError is the error type returned by every public operation in this
// module.
type AppError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is and errors.As to work.
func (e *AppError) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func WithDetails(kind Kind, message string, details map[string]interface{}) *AppError {
	return &AppError{Kind: kind, Message: message, Details: details}
}

func NewInvalidIdentifier(message string) *AppError { return New(KindInvalidIdentifier, message) }
func NewMissingEndpoint(message string) *AppError    { return New(KindMissingEndpoint, message) }
func NewNotFound(message string) *AppError           { return New(KindNotFound, message) }
func NewCancelled(message string) *AppError          { return New(KindCancelled, message) }
func NewDeadlineExceeded(message string) *AppError   { return New(KindDeadlineExceeded, message) }

func NewParserError(message string, err error) *AppError {
	return Wrap(KindParserError, message, err)
}

func NewBatchRolledBack(message string) *AppError { return New(KindBatchRolledBack, message) }

func NewInternal(message string, err error) *AppError {
	return Wrap(KindInternal, message, err)
}

// Is reports whether err is an *AppError of the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Kind == kind
}

// KindOf extracts the Kind from err, defaulting to KindInternal for
// errors that did not originate from this package.
func KindOf(err error) Kind {
	if ae, ok := err.(*AppError); ok {
		return ae.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the status code the REST layer returns for it.
func HTTPStatus(k Kind) int {
	switch k {
	case KindInvalidIdentifier, KindMissingEndpoint:
		return 400
	case KindNotFound:
		return 404
	case KindCancelled:
		return 499
	case KindDeadlineExceeded:
		return 504
	default:
		return 500
	}
}
