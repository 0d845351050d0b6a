package errcode

// Code is a stable error identifier for the clock and power core.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	InvalidParams Code = "invalid_params"
	UnknownPll    Code = "unknown_pll"
	UnknownChip   Code = "unknown_chip"

	// Caller input; no side effects, safe to retry with another value.
	UnsupportedFrequency Code = "unsupported_frequency"

	// Hardware-fault class; never retried, never recovered locally.
	CalibrationTimeout          Code = "calibration_timeout"
	ConsumerAccountingViolation Code = "consumer_accounting_violation"

	Error Code = "error" // generic fallback
)

// E keeps the operation and cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match a wrapped code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New wraps c with the failing operation and a short message.
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return Of(u.Unwrap())
	}
	return Error
}

// Fatal reports whether c means the device timing guarantees are gone.
func Fatal(c Code) bool {
	return c == CalibrationTimeout || c == ConsumerAccountingViolation
}
