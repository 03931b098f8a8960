// Package sqlerr defines the error taxonomy shared by the tokenizer, parser,
// catalog and execution engine.
//
// Every failure surfaced by tinycol is an *Error carrying a Kind. Callers
// match kinds with errors.Is against the exported sentinels:
//
//	if errors.Is(err, sqlerr.ErrExecution) { ... }
package sqlerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the pipeline stage that produced it.
type Kind int

const (
	// KindLex marks malformed tokens (bad character, unterminated literal,
	// invalid or overflowing number).
	KindLex Kind = iota + 1
	// KindParse marks token sequences that match no grammar production.
	KindParse
	// KindSchema marks DDL conflicts: duplicate table or column, unknown type.
	KindSchema
	// KindExecution marks runtime DML/DQL failures.
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex error"
	case KindParse:
		return "parse error"
	case KindSchema:
		return "schema error"
	case KindExecution:
		return "execution error"
	default:
		return "error"
	}
}

// NoPos is used for errors that are not tied to a source position.
const NoPos = -1

// Error is the concrete error type returned by every tinycol component.
type Error struct {
	Kind Kind
	// Pos is the byte offset into the SQL text, or NoPos.
	Pos int
	Msg string
	// Err is an optional underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. Sentinels carry
// only a kind, so errors.Is(err, ErrParse) matches every parse error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is matching.
var (
	ErrLex       = &Error{Kind: KindLex, Pos: NoPos}
	ErrParse     = &Error{Kind: KindParse, Pos: NoPos}
	ErrSchema    = &Error{Kind: KindSchema, Pos: NoPos}
	ErrExecution = &Error{Kind: KindExecution, Pos: NoPos}
)

// Lexf returns a lex error at byte offset pos.
func Lexf(pos int, format string, a ...any) *Error {
	return &Error{Kind: KindLex, Pos: pos, Msg: fmt.Sprintf(format, a...)}
}

// Parsef returns a parse error at byte offset pos.
func Parsef(pos int, format string, a ...any) *Error {
	return &Error{Kind: KindParse, Pos: pos, Msg: fmt.Sprintf(format, a...)}
}

// Schemaf returns a schema error.
func Schemaf(format string, a ...any) *Error {
	return &Error{Kind: KindSchema, Pos: NoPos, Msg: fmt.Sprintf(format, a...)}
}

// Execf returns an execution error.
func Execf(format string, a ...any) *Error {
	return &Error{Kind: KindExecution, Pos: NoPos, Msg: fmt.Sprintf(format, a...)}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, err error, format string, a ...any) *Error {
	return &Error{Kind: kind, Pos: NoPos, Msg: fmt.Sprintf(format, a...) + ": " + err.Error(), Err: err}
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
