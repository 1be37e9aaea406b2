package errors

import (
	"errors"
	"log/slog"
	"runtime"
	"strconv"
)

// AnnotatedError includes more context than a plain error that is useful for troubleshooting.
type AnnotatedError struct {
	// msg describes the step that failed.
	msg string
	// cause is the wrapped error, nil for errors created with New.
	cause error
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
}

func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC, and the exported constructor.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return pcs[0]
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &AnnotatedError{
		msg:   msg,
		cause: nil,
		pc:    callerPC(),
		attrs: attrs,
	}
}

// NewSentinel creates a plain error without other context that can be detected with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Wrap annotates err with a description of the failed step and optional attributes.
//
// Wrapping a nil error returns nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &AnnotatedError{
		msg:   msg,
		cause: err,
		pc:    callerPC(),
		attrs: attrs,
	}
}

// Error implements error interface.
func (e *AnnotatedError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

// Unwrap returns the wrapped error.
func (e *AnnotatedError) Unwrap() error {
	return e.cause
}

func (e *AnnotatedError) source() string {
	frames := runtime.CallersFrames([]uintptr{e.pc})
	frame, _ := frames.Next()
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

// LogValue formats the error for useful logging.
//
// The source points to the innermost annotated error since that is where the failure originated. Attributes of all
// annotated errors in the chain are included.
func (e *AnnotatedError) LogValue() slog.Value {
	return chainValue(e.Error(), e)
}

func chainValue(msg string, err error) slog.Value {
	var (
		source string
		attrs  []slog.Attr
	)
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		annotated, ok := cur.(*AnnotatedError) //nolint:errorlint // walking the chain manually
		if !ok {
			continue
		}
		source = annotated.source()
		attrs = append(attrs, annotated.attrs...)
	}
	attrs = append([]slog.Attr{
		slog.String("msg", msg),
		slog.String("source", source),
	}, attrs...)
	return slog.GroupValue(attrs...)
}

// joinedValue logs an error whose outermost layer is not annotated, e.g. the result of Join.
type joinedValue struct {
	msg   string
	inner *AnnotatedError
}

func (v joinedValue) LogValue() slog.Value {
	return chainValue(v.msg, v.inner)
}

// SlogError returns an attribute for logging err under the key "error".
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var annotated *AnnotatedError
	if !errors.As(err, &annotated) {
		return slog.String("error", err.Error())
	}
	if error(annotated) == err { //nolint:errorlint // identity check
		return slog.Any("error", annotated)
	}
	return slog.Any("error", joinedValue{msg: err.Error(), inner: annotated})
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
