// Package engineerr defines the three error kinds of spec §7: Fatal
// (invariant violation, terminates the process through the top end's crash
// callback), Recoverable (SerializableException, propagated up through the
// executor stack), and the out-of-scope User kind (constraint violations).
//
// Typed rather than sentinel errors, since the two kinds carry structured
// payloads (a captured stack for Fatal, an optional cause for Recoverable)
// that a bare errors.New sentinel cannot.
package engineerr

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Fatal represents an invariant violation inside the engine: truncating a
// StreamBlock past its committed USO, releasing a pinned LttBlock, etc.
// There is no recovery path (spec §7 kind 1) — the caller is expected to
// hand this to Crash.
type Fatal struct {
	Msg   string
	Stack []byte
}

func NewFatal(format string, args ...interface{}) *Fatal {
	return &Fatal{
		Msg:   fmt.Sprintf(format, args...),
		Stack: debug.Stack(),
	}
}

func (f *Fatal) Error() string { return "fatal: " + f.Msg }

// Recoverable is the port of VoltDB's SerializableException: out-of-budget
// conditions, a tuple larger than a stream's maximum buffer, failed top-end
// I/O, bad input. The surrounding executor either retries or aborts the
// fragment; aborting triggers undo of the fragment's undo quantum.
type Recoverable struct {
	Msg   string
	Cause error
}

func NewRecoverable(msg string) *Recoverable {
	return &Recoverable{Msg: msg}
}

func WrapRecoverable(cause error, msg string) *Recoverable {
	return &Recoverable{Msg: msg, Cause: cause}
}

func (r *Recoverable) Error() string {
	if r.Cause != nil {
		return fmt.Sprintf("%s: %v", r.Msg, r.Cause)
	}
	return r.Msg
}

func (r *Recoverable) Unwrap() error { return r.Cause }

// IsFatal and IsRecoverable classify an error for callers that need to
// decide whether to retry, abort, or crash.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}

func IsRecoverable(err error) bool {
	var r *Recoverable
	return errors.As(err, &r)
}

// Crasher is satisfied by topend.Topend; kept here (rather than importing
// topend) to avoid a dependency cycle, since topend imports this package
// to embed Crasher in its Topend interface.
type Crasher interface {
	CrashVoltDB(reason string)
}

// Crash logs nothing itself (the caller already logged the Fatal at Crit
// level) and simply hands the formatted reason to the top end's crash
// callback, which does not return.
func Crash(top Crasher, err *Fatal) {
	top.CrashVoltDB(err.Error())
}
