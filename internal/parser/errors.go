package parser

import "fmt"

type ErrorKind string

const (
	// UnsupportedProtocol means the line carried a scheme outside the four
	// we handle. Malformed means the scheme was recognized but the body
	// could not be decoded into a valid config.
	UnsupportedProtocol ErrorKind = "unsupported_protocol"
	Malformed           ErrorKind = "malformed"
)

type ParseError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func unsupported(scheme string) *ParseError {
	return &ParseError{Kind: UnsupportedProtocol, Detail: scheme}
}

func malformed(format string, args ...any) *ParseError {
	return &ParseError{Kind: Malformed, Detail: fmt.Sprintf(format, args...)}
}
