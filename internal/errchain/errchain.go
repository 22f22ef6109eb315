// Package errchain renders error cause chains as the multi-line text shown in
// error alerts.
package errchain

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// Arrow prefixes every cause line.
	Arrow = "↳ "

	// MaxDepth bounds how many links are followed before the chain is cut.
	MaxDepth = 32

	truncatedMessage = "(cause chain truncated)"
)

// Error is an explicit message plus optional cause.
type Error struct {
	Message string
	Cause   error
}

// New returns an Error wrapping cause, which may be nil.
func New(message string, cause error) *Error {
	return &Error{Message: message, Cause: cause}
}

// Error joins the chain on one line. Like Format it stops after MaxDepth links.
func (e *Error) Error() string {
	return strings.Join(Lines(e), ": ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Format returns the top message followed by one arrow-prefixed line per cause.
func Format(err error) string {
	lines := Lines(err)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n"+Arrow)
}

// Lines returns the messages of the chain, outermost first, without arrows.
func Lines(err error) []string {
	var out []string
	for e := FromError(err); e != nil; {
		out = append(out, e.Message)
		next, ok := e.Cause.(*Error)
		if !ok {
			break
		}
		e = next
	}
	return out
}

// FromError converts any error chain into a fresh linked list of *Error.
// The result is always acyclic: at most MaxDepth links of the source chain
// are followed.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var head, tail *Error
	link := func(msg string) {
		node := &Error{Message: msg}
		if head == nil {
			head = node
		} else {
			tail.Cause = node
		}
		tail = node
	}

	for depth := 0; err != nil; depth++ {
		if depth >= MaxDepth {
			log.WithField("max_depth", MaxDepth).Warn("Error cause chain is too deep, truncating")
			link(truncatedMessage)
			break
		}
		msg, cause, own := split(err)
		if own {
			link(msg)
		}
		err = cause
	}
	return head
}

// split returns the message that belongs to err itself and the next cause.
// own is false for transparent wrappers that add no text of their own.
func split(err error) (msg string, cause error, own bool) {
	switch e := err.(type) {
	case *Error:
		if e == nil {
			log.Error("Malformed error, nil *errchain.Error in cause chain")
			return "<nil>", nil, true
		}
		return e.Message, e.Cause, true
	case interface{ Unwrap() []error }:
		log.WithField("error_type", fmt.Sprintf("%T", err)).
			Error("Malformed error, cause has multiple branches; flattening")
		return strings.ReplaceAll(safeMessage(err), "\n", "; "), nil, true
	}

	full := safeMessage(err)
	cause = safeUnwrap(err)
	if cause == nil {
		return full, nil, true
	}

	causeMsg := safeMessage(cause)
	switch {
	case full == causeMsg:
		return "", cause, false
	case strings.HasSuffix(full, ": "+causeMsg):
		return strings.TrimSuffix(full, ": "+causeMsg), cause, true
	default:
		return full, cause, true
	}
}

func safeMessage(err error) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"error_type": fmt.Sprintf("%T", err),
				"panic":      r,
			}).Error("Malformed error, cause could not be rendered")
			msg = fmt.Sprintf("%T", err)
		}
	}()
	return err.Error()
}

func safeUnwrap(err error) (cause error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("error_type", fmt.Sprintf("%T", err)).Error("Malformed error, cause could not be unwrapped")
			cause = nil
		}
	}()
	return errors.Unwrap(err)
}
