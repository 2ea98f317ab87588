package parse

import "fmt"

// ParseError is raised when a handler fails to make sense of a file.
type ParseError struct {
	Msg      string
	Filename string
	Lineno   int
}

func (e *ParseError) Error() string {
	if e.Lineno > 0 {
		return fmt.Sprintf("parse error at %s:%d: %s", e.Filename, e.Lineno, e.Msg)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Filename, e.Msg)
}

// UnsupportedError is raised when no registered handler claims a file.
type UnsupportedError struct {
	Path string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("no registered handler for %s", e.Path)
}
