// Package aerrors holds the error taxonomy of the execution core.
//
// Every error that crosses a send boundary is an ActorError. Non-fatal errors
// carry an exit code and are returned to the calling actor; fatal errors mean
// the node itself is in trouble (store failures, broken invariants) and abort
// the whole top-level message.
package aerrors

import (
	"errors"
	"fmt"

	"github.com/filecoin-project/go-state-types/exitcode"
	"golang.org/x/xerrors"
)

// ActorError is the error returned across the send boundary.
type ActorError interface {
	error
	IsFatal() bool
	RetCode() exitcode.ExitCode
}

type actorError struct {
	fatal   bool
	retCode exitcode.ExitCode

	msg   string
	frame xerrors.Frame
	err   error
}

func (e *actorError) IsFatal() bool {
	return e.fatal
}

func (e *actorError) RetCode() exitcode.ExitCode {
	return e.retCode
}

func (e *actorError) Error() string {
	return fmt.Sprint(e)
}

func (e *actorError) Format(s fmt.State, v rune) { xerrors.FormatError(e, s, v) }

func (e *actorError) FormatError(p xerrors.Printer) (next error) {
	p.Print(e.msg)
	if e.fatal {
		p.Print(" (FATAL)")
	} else {
		p.Printf(" (RetCode=%d)", e.retCode)
	}

	e.frame.Format(p)
	return e.err
}

func (e *actorError) Unwrap() error {
	return e.err
}

// IsFatal reports whether err is a fatal ActorError, or not an ActorError at
// all. Plain errors reaching a send boundary are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ae ActorError
	if errors.As(err, &ae) {
		return ae.IsFatal()
	}
	return true
}

// RetCode returns the exit code carried by err. Fatal errors and plain errors
// have no meaningful code and report SysErrorIllegalActor.
func RetCode(err error) exitcode.ExitCode {
	if err == nil {
		return exitcode.Ok
	}
	var ae ActorError
	if errors.As(err, &ae) && !ae.IsFatal() {
		return ae.RetCode()
	}
	return exitcode.SysErrorIllegalActor
}

// Is reports whether err carries the given exit code.
func Is(err error, code exitcode.ExitCode) bool {
	var ae ActorError
	if !errors.As(err, &ae) {
		return false
	}
	return !ae.IsFatal() && ae.RetCode() == code
}
